package sender

import (
	"encoding/binary"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Metadata identifies the sending installation. It is sent as query
// parameters with every batch.
type Metadata struct {
	// ServiceURL is the collector endpoint.
	ServiceURL string

	// Token is the static application token.
	Token string

	// DeviceID identifies the installation (mobUuid).
	DeviceID string

	// Platform is the host platform, e.g. "linux".
	Platform string

	// DeviceType is the device class (mobDeviceType).
	DeviceType string

	// Params are extra query parameters. They cannot override the method
	// or timestamp parameters.
	Params map[string]string
}

// DeviceKey returns the query string that identifies this installation to
// the collector's device lookup: token lowercased, the device id hashed,
// then platform and device type. Empty values are left out.
func (m Metadata) DeviceKey() string {
	var b strings.Builder
	add := func(key, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(escapeDataString(value))
	}
	add("token", strings.ToLower(m.Token))
	add("mobUuid", HashDeviceID(m.DeviceID))
	add("platform", m.Platform)
	add("mobDeviceType", m.DeviceType)
	return b.String()
}

// HashDeviceID returns the lowercase hex MurmurHash3 x64 128-bit digest
// (seed 0, both halves little-endian) of the lowercased id. An empty id
// stays empty.
func HashDeviceID(id string) string {
	if id == "" {
		return ""
	}
	h1, h2 := murmur3.Sum128([]byte(strings.ToLower(id)))
	var sum [16]byte
	binary.LittleEndian.PutUint64(sum[:8], h1)
	binary.LittleEndian.PutUint64(sum[8:], h2)
	return hex.EncodeToString(sum[:])
}

// escapeDataString escapes spaces as %20 rather than '+'.
func escapeDataString(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

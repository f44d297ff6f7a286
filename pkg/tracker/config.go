package tracker

import (
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"time"
)

// ErrInvalidConfig is wrapped by every Config.Validate error.
var ErrInvalidConfig = errors.New("invalid config")

// Defaults.
const (
	DefaultFlushInterval  = 30 * time.Second
	DefaultUploadInterval = 30 * time.Second
	DefaultMaxBufferBytes = 2 << 20
	DefaultHTTPTimeout    = 12 * time.Minute
	DefaultIOTimeout      = 10 * time.Minute
	DefaultDeviceType     = "server"
)

// Config configures a Tracker.
type Config struct {
	// ServiceURL is the collector endpoint. Required.
	ServiceURL string

	// Token is the static application token. Required.
	Token string

	// DeviceID identifies this installation. When empty it is loaded from,
	// or generated into, identity.json in StorageDir.
	DeviceID string

	// Platform defaults to runtime.GOOS.
	Platform string

	// DeviceType defaults to "server".
	DeviceType string

	// Params are extra query parameters sent with every batch.
	Params map[string]string

	// StorageDir holds pending batches. Empty keeps them in memory only.
	StorageDir string

	// ServerID is stamped on every batch as its origin.
	ServerID string

	// Quarantine moves unreadable batch files aside instead of retrying them.
	Quarantine bool

	FlushInterval  time.Duration
	UploadInterval time.Duration

	// MaxBufferBytes is the approximate buffered size that forces a flush.
	MaxBufferBytes int

	// HTTPTimeout bounds a whole upload request.
	HTTPTimeout time.Duration

	// IOTimeout bounds individual network reads and writes.
	IOTimeout time.Duration

	// ShutdownTimeout bounds how long Stop waits for the loops.
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero fields with defaults.
func (c *Config) SetDefaults() {
	if c.Platform == "" {
		c.Platform = runtime.GOOS
	}
	if c.DeviceType == "" {
		c.DeviceType = DefaultDeviceType
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.UploadInterval <= 0 {
		c.UploadInterval = DefaultUploadInterval
	}
	if c.MaxBufferBytes <= 0 {
		c.MaxBufferBytes = DefaultMaxBufferBytes
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.IOTimeout <= 0 {
		c.IOTimeout = DefaultIOTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.ServiceURL == "" {
		return fmt.Errorf("%w: service url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.ServiceURL)
	if err != nil {
		return fmt.Errorf("%w: service url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: service url must be http or https, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: service url has no host", ErrInvalidConfig)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidConfig)
	}
	if c.FlushInterval < 0 || c.UploadInterval < 0 {
		return fmt.Errorf("%w: intervals must not be negative", ErrInvalidConfig)
	}
	if c.MaxBufferBytes < 0 {
		return fmt.Errorf("%w: max buffer bytes must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Tunables are the settings that can change while a Tracker runs.
// Zero fields mean "keep the current value".
type Tunables struct {
	FlushInterval  time.Duration
	UploadInterval time.Duration
	MaxBufferBytes int
}

func (t Tunables) validate() error {
	if t.FlushInterval < 0 || t.UploadInterval < 0 || t.MaxBufferBytes < 0 {
		return fmt.Errorf("%w: tunables must not be negative", ErrInvalidConfig)
	}
	return nil
}

package sender

import (
	"net"
	"net/http"
	"time"
)

// HTTPClient abstracts HTTP request execution for testing and custom transports.
// The standard *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client whose whole request is bounded by total
// and whose individual network reads and writes are bounded by io.
func NewHTTPClient(total, io time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: io, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   io,
		ResponseHeaderTimeout: io,
		IdleConnTimeout:       io,
		ExpectContinueTimeout: time.Second,
		MaxIdleConnsPerHost:   2,
	}
	return &http.Client{Timeout: total, Transport: transport}
}

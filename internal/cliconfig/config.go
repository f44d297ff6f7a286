package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/trackship/pkg/tracker"
)

// DefaultServiceURL is the default collector endpoint.
const DefaultServiceURL = "https://collector.trackship.io/api"

// Config holds CLI configuration for trackship.
type Config struct {
	ServiceURL string
	Token      string

	DeviceID   string
	Platform   string
	DeviceType string
	ServerID   string
	Params     map[string]string

	StorageDir string
	Quarantine bool

	FlushInterval  time.Duration
	UploadInterval time.Duration
	MaxBufferBytes int
	HTTPTimeout    time.Duration
	IOTimeout      time.Duration
	DrainTimeout   time.Duration

	Input    string
	Once     bool
	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServiceURL:     DefaultServiceURL,
		DeviceType:     tracker.DefaultDeviceType,
		FlushInterval:  tracker.DefaultFlushInterval,
		UploadInterval: tracker.DefaultUploadInterval,
		MaxBufferBytes: tracker.DefaultMaxBufferBytes,
		HTTPTimeout:    tracker.DefaultHTTPTimeout,
		IOTimeout:      tracker.DefaultIOTimeout,
		DrainTimeout:   time.Minute,
		LogLevel:       "info",
		Token:          os.Getenv("TRACKSHIP_TOKEN"),
	}
}

// Validate checks the configuration for errors and normalizes derived values.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")

	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive")
	}
	if c.UploadInterval <= 0 {
		return fmt.Errorf("upload interval must be positive")
	}
	if c.MaxBufferBytes <= 0 {
		return fmt.Errorf("max buffer bytes must be positive")
	}
	if c.DrainTimeout < 0 {
		return fmt.Errorf("drain timeout must not be negative")
	}
	return nil
}

// TrackerConfig converts the CLI configuration into a tracker.Config.
func (c Config) TrackerConfig() tracker.Config {
	return tracker.Config{
		ServiceURL:     c.ServiceURL,
		Token:          c.Token,
		DeviceID:       c.DeviceID,
		Platform:       c.Platform,
		DeviceType:     c.DeviceType,
		Params:         c.Params,
		StorageDir:     c.StorageDir,
		ServerID:       c.ServerID,
		Quarantine:     c.Quarantine,
		FlushInterval:  c.FlushInterval,
		UploadInterval: c.UploadInterval,
		MaxBufferBytes: c.MaxBufferBytes,
		HTTPTimeout:    c.HTTPTimeout,
		IOTimeout:      c.IOTimeout,
	}
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.Token != "" {
		c.Token = "***"
	}
	return c
}

// configSetter applies values unless the corresponding flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt ignores non-positive values.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setParams merges value into dst. Keys already in dst win when the flag was set.
func (s *configSetter) setParams(flag string, value map[string]string, dst *map[string]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	if *dst == nil {
		*dst = make(map[string]string, len(value))
	}
	for k, v := range value {
		(*dst)[k] = v
	}
}

// setIntFromString parses a string to int for environment variables.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// parseParams reads "k=v,k2=v2" as used by TRACKSHIP_PARAMS.
func parseParams(value string) (map[string]string, error) {
	if value == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("parse params: malformed pair %q", pair)
		}
		out[k] = v
	}
	return out, nil
}

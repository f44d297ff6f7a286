package cliconfig

import (
	"testing"
	"time"

	"github.com/bft-labs/trackship/pkg/tracker"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServiceURL != DefaultServiceURL {
		t.Errorf("ServiceURL = %v, want %v", cfg.ServiceURL, DefaultServiceURL)
	}
	if cfg.FlushInterval != tracker.DefaultFlushInterval {
		t.Errorf("FlushInterval = %v, want %v", cfg.FlushInterval, tracker.DefaultFlushInterval)
	}
	if cfg.MaxBufferBytes != tracker.DefaultMaxBufferBytes {
		t.Errorf("MaxBufferBytes = %v, want %v", cfg.MaxBufferBytes, tracker.DefaultMaxBufferBytes)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServiceURL:     "http://localhost:8080",
			Token:          "tok",
			FlushInterval:  time.Second,
			UploadInterval: time.Second,
			MaxBufferBytes: 1024,
		}
	}

	tests := []struct {
		name           string
		mutate         func(*Config)
		wantErr        bool
		wantServiceURL string
	}{
		{
			name:           "valid minimal config",
			mutate:         func(*Config) {},
			wantServiceURL: "http://localhost:8080",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Token = "" },
			wantErr: true,
		},
		{
			name:           "empty service url falls back to default",
			mutate:         func(c *Config) { c.ServiceURL = "" },
			wantServiceURL: DefaultServiceURL,
		},
		{
			name:           "trailing slashes trimmed",
			mutate:         func(c *Config) { c.ServiceURL = "http://localhost:8080//" },
			wantServiceURL: "http://localhost:8080",
		},
		{
			name:    "zero flush interval",
			mutate:  func(c *Config) { c.FlushInterval = 0 },
			wantErr: true,
		},
		{
			name:    "negative upload interval",
			mutate:  func(c *Config) { c.UploadInterval = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero max buffer bytes",
			mutate:  func(c *Config) { c.MaxBufferBytes = 0 },
			wantErr: true,
		},
		{
			name:    "negative drain timeout",
			mutate:  func(c *Config) { c.DrainTimeout = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.ServiceURL != tt.wantServiceURL {
				t.Errorf("ServiceURL = %v, want %v", cfg.ServiceURL, tt.wantServiceURL)
			}
		})
	}
}

func TestConfig_TrackerConfig(t *testing.T) {
	cfg := Config{
		ServiceURL:     "https://collector.example.com",
		Token:          "tok",
		DeviceID:       "dev",
		Platform:       "linux",
		DeviceType:     "server",
		ServerID:       "web-1",
		Params:         map[string]string{"env": "prod"},
		StorageDir:     "/var/lib/trackship",
		Quarantine:     true,
		FlushInterval:  time.Second,
		UploadInterval: 2 * time.Second,
		MaxBufferBytes: 4096,
		HTTPTimeout:    time.Minute,
		IOTimeout:      30 * time.Second,
	}

	tc := cfg.TrackerConfig()
	if err := tc.Validate(); err != nil {
		t.Fatalf("tracker config invalid: %v", err)
	}
	if tc.ServerID != "web-1" || tc.StorageDir != "/var/lib/trackship" || !tc.Quarantine {
		t.Errorf("storage fields not carried over: %+v", tc)
	}
	if tc.Params["env"] != "prod" {
		t.Errorf("Params = %v", tc.Params)
	}
	if tc.UploadInterval != 2*time.Second || tc.MaxBufferBytes != 4096 {
		t.Errorf("tunables not carried over: %+v", tc)
	}
}

func TestConfig_Masked(t *testing.T) {
	cfg := Config{Token: "secret"}
	if got := cfg.Masked().Token; got != "***" {
		t.Errorf("Masked().Token = %q", got)
	}
	if cfg.Token != "secret" {
		t.Error("Masked modified the receiver")
	}
	if got := (Config{}).Masked().Token; got != "" {
		t.Errorf("empty token masked to %q", got)
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		in      string
		want    map[string]string
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "a=1", want: map[string]string{"a": "1"}},
		{in: "a=1, b=two", want: map[string]string{"a": "1", "b": "two"}},
		{in: "a=", want: map[string]string{"a": ""}},
		{in: "novalue", wantErr: true},
		{in: "=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseParams(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseParams(%q) error = %v", tt.in, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseParams(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

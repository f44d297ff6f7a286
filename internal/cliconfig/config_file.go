package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with string durations for TOML.
type FileConfig struct {
	ServiceURL     string            `toml:"service_url"`
	Token          string            `toml:"token"`
	DeviceID       string            `toml:"device_id"`
	Platform       string            `toml:"platform"`
	DeviceType     string            `toml:"device_type"`
	ServerID       string            `toml:"server_id"`
	Params         map[string]string `toml:"params"`
	StorageDir     string            `toml:"storage_dir"`
	Quarantine     *bool             `toml:"quarantine"`
	FlushInterval  string            `toml:"flush_interval"`
	UploadInterval string            `toml:"upload_interval"`
	MaxBufferBytes int               `toml:"max_buffer_bytes"`
	HTTPTimeout    string            `toml:"http_timeout"`
	IOTimeout      string            `toml:"io_timeout"`
	DrainTimeout   string            `toml:"drain_timeout"`
	LogLevel       string            `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.trackship/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".trackship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies fc to cfg, skipping flags in changed.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("token", fc.Token, &cfg.Token)
	s.setString("device-id", fc.DeviceID, &cfg.DeviceID)
	s.setString("platform", fc.Platform, &cfg.Platform)
	s.setString("device-type", fc.DeviceType, &cfg.DeviceType)
	s.setString("server-id", fc.ServerID, &cfg.ServerID)
	s.setString("storage-dir", fc.StorageDir, &cfg.StorageDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setParams("param", fc.Params, &cfg.Params)

	if err := s.setDuration("flush-interval", fc.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("upload-interval", fc.UploadInterval, &cfg.UploadInterval); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("io-timeout", fc.IOTimeout, &cfg.IOTimeout); err != nil {
		return err
	}
	if err := s.setDuration("drain-timeout", fc.DrainTimeout, &cfg.DrainTimeout); err != nil {
		return err
	}

	s.setInt("max-buffer-bytes", fc.MaxBufferBytes, &cfg.MaxBufferBytes)
	s.setBool("quarantine", fc.Quarantine, &cfg.Quarantine)

	return nil
}

// FileExists reports whether p exists.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

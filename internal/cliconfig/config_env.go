package cliconfig

import "os"

// ApplyEnvConfig applies TRACKSHIP_* environment variables, skipping flags in
// changed. It fails on values that do not parse.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", os.Getenv("TRACKSHIP_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("token", os.Getenv("TRACKSHIP_TOKEN"), &cfg.Token)
	s.setString("device-id", os.Getenv("TRACKSHIP_DEVICE_ID"), &cfg.DeviceID)
	s.setString("platform", os.Getenv("TRACKSHIP_PLATFORM"), &cfg.Platform)
	s.setString("device-type", os.Getenv("TRACKSHIP_DEVICE_TYPE"), &cfg.DeviceType)
	s.setString("server-id", os.Getenv("TRACKSHIP_SERVER_ID"), &cfg.ServerID)
	s.setString("storage-dir", os.Getenv("TRACKSHIP_STORAGE_DIR"), &cfg.StorageDir)
	s.setString("input", os.Getenv("TRACKSHIP_INPUT"), &cfg.Input)
	s.setString("log-level", os.Getenv("TRACKSHIP_LOG_LEVEL"), &cfg.LogLevel)

	params, err := parseParams(os.Getenv("TRACKSHIP_PARAMS"))
	if err != nil {
		return err
	}
	s.setParams("param", params, &cfg.Params)

	if err := s.setDuration("flush-interval", os.Getenv("TRACKSHIP_FLUSH_INTERVAL"), &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("upload-interval", os.Getenv("TRACKSHIP_UPLOAD_INTERVAL"), &cfg.UploadInterval); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", os.Getenv("TRACKSHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("io-timeout", os.Getenv("TRACKSHIP_IO_TIMEOUT"), &cfg.IOTimeout); err != nil {
		return err
	}
	if err := s.setDuration("drain-timeout", os.Getenv("TRACKSHIP_DRAIN_TIMEOUT"), &cfg.DrainTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("max-buffer-bytes", os.Getenv("TRACKSHIP_MAX_BUFFER_BYTES"), &cfg.MaxBufferBytes); err != nil {
		return err
	}

	s.setBoolFromString("quarantine", os.Getenv("TRACKSHIP_QUARANTINE"), &cfg.Quarantine)
	s.setBoolFromString("once", os.Getenv("TRACKSHIP_ONCE"), &cfg.Once)

	return nil
}

// internal/config/normalize.go
package config

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	p := &cfg.Positioner

	if p.Bus.BaudRate == 0 {
		p.Bus.BaudRate = 921600
	}
	if p.Bus.Bitrate == 0 {
		p.Bus.Bitrate = 1000000
	}

	if p.Device.RecvTimeoutMs == 0 {
		p.Device.RecvTimeoutMs = 1000
	}
	if p.Device.RecvAttempts == 0 {
		p.Device.RecvAttempts = 5
	}
	if p.Device.PollIntervalMs == 0 {
		p.Device.PollIntervalMs = 500
	}

	if p.Logging.Level == "" {
		p.Logging.Level = "info"
	}
	if p.Logging.Format == "" {
		p.Logging.Format = "console"
	}
}

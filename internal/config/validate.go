// internal/config/validate.go
package config

import "fmt"

// maxAddress mirrors the 11-bit device address field of the frame id.
const maxAddress = 0x7FF

// supportedBitrates are the CAN bitrates the slcan adapter can set.
var supportedBitrates = map[int]bool{
	10000:   true,
	20000:   true,
	50000:   true,
	100000:  true,
	125000:  true,
	250000:  true,
	500000:  true,
	800000:  true,
	1000000: true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	p := cfg.Positioner

	// ---- bus ----

	if p.Bus.Port == "" {
		return fmt.Errorf("config: bus.port is required")
	}
	if p.Bus.BaudRate < 0 {
		return fmt.Errorf("config: bus.baud_rate must not be negative")
	}
	if p.Bus.Bitrate != 0 && !supportedBitrates[p.Bus.Bitrate] {
		return fmt.Errorf("config: bus.bitrate %d is not a supported CAN bitrate", p.Bus.Bitrate)
	}

	// ---- device ----

	if p.Device.Address > maxAddress {
		return fmt.Errorf("config: device.address %d exceeds the 11-bit address field", p.Device.Address)
	}
	if p.Device.RecvTimeoutMs < 0 {
		return fmt.Errorf("config: device.recv_timeout_ms must not be negative")
	}
	if p.Device.RecvAttempts < 0 {
		return fmt.Errorf("config: device.recv_attempts must not be negative")
	}
	if p.Device.PollIntervalMs < 0 {
		return fmt.Errorf("config: device.poll_interval_ms must not be negative")
	}
	if p.Device.WaitMoveTimeoutS < 0 {
		return fmt.Errorf("config: device.wait_move_timeout_s must not be negative")
	}

	// ---- logging ----

	switch p.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not a known level", p.Logging.Level)
	}
	switch p.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format %q must be console or json", p.Logging.Format)
	}

	return nil
}

// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Positioner PositionerConfig `yaml:"positioner"`
}

type PositionerConfig struct {
	Bus     BusConfig     `yaml:"bus"`
	Device  DeviceConfig  `yaml:"device"`
	Logging LoggingConfig `yaml:"logging"`
}

// ---- BUS ----

type BusConfig struct {
	Port     string `yaml:"port"`      // serial device of the slcan adapter
	BaudRate int    `yaml:"baud_rate"` // serial line rate
	Bitrate  int    `yaml:"bitrate"`   // CAN bitrate in bit/s
}

// ---- DEVICE ----

type DeviceConfig struct {
	// Address 0 means discover the device via broadcast GET_ID.
	Address uint16 `yaml:"address"`

	RecvTimeoutMs  int `yaml:"recv_timeout_ms"`
	RecvAttempts   int `yaml:"recv_attempts"`
	PollIntervalMs int `yaml:"poll_interval_ms"`

	// WaitMoveTimeoutS bounds wait-for-motion; 0 keeps the legacy
	// unbounded wait.
	WaitMoveTimeoutS int `yaml:"wait_move_timeout_s"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"` // console or json
	File   LogFileConfig `yaml:"file"`
}

type LogFileConfig struct {
	Filename   string `yaml:"filename"` // empty disables the file sink
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads and parses a config file. Validate and Normalize are the
// caller's next steps.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

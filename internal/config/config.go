// Package config holds the device configuration, loaded from YAML with
// defaults matching the reference sensor firmware.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full device configuration.
type Config struct {
	DeviceName string `yaml:"device_name"`
	LogLevel   string `yaml:"log_level"`

	// Custom GATT service exposed to the client.
	ServiceUUID     string `yaml:"service_uuid"`
	CommandCharUUID string `yaml:"command_char_uuid"`
	DataCharUUID    string `yaml:"data_char_uuid"`

	Engine Engine `yaml:"engine"`
}

// Engine controls the protocol engine and the recording lifecycle policy.
type Engine struct {
	// TickPeriod drives the lifecycle counters; the disconnect and
	// availability windows below must be multiples of it.
	TickPeriod        time.Duration `yaml:"tick_period"`
	DisconnectTimeout time.Duration `yaml:"disconnect_timeout"`
	AvailabilityTime  time.Duration `yaml:"availability_time"`

	// StopOnConnect halts recording while a BLE peer is attached and
	// resumes it on disconnect, for deployments where radio activity
	// interferes with measurement.
	StopOnConnect bool `yaml:"stop_on_connect"`

	// RepackRecords re-frames fetched log streams into per-record frames
	// instead of raw offset-tagged chunks.
	RepackRecords bool `yaml:"repack_records"`

	// RecordPaths are the measurement resources recorded while logging.
	RecordPaths []string `yaml:"record_paths"`
}

// Default returns the reference device configuration.
func Default() Config {
	return Config{
		DeviceName:      "ecglogd",
		LogLevel:        "info",
		ServiceUUID:     "34802252-7185-4d5d-b431-630e7050e8f0",
		CommandCharUUID: "34800001-7185-4d5d-b431-630e7050e8f0",
		DataCharUUID:    "34800002-7185-4d5d-b431-630e7050e8f0",
		Engine: Engine{
			TickPeriod:        5 * time.Second,
			DisconnectTimeout: 9 * time.Hour,
			AvailabilityTime:  60 * time.Second,
			RecordPaths:       []string{"/Meas/ECG/200/mV", "/Meas/IMU6/26"},
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	e := c.Engine
	if e.TickPeriod <= 0 {
		return fmt.Errorf("tick_period must be positive")
	}
	if e.DisconnectTimeout < e.TickPeriod {
		return fmt.Errorf("disconnect_timeout must be at least one tick period")
	}
	if e.AvailabilityTime < e.TickPeriod {
		return fmt.Errorf("availability_time must be at least one tick period")
	}
	if len(e.RecordPaths) == 0 {
		return fmt.Errorf("at least one record path is required")
	}
	return nil
}

// DisconnectTicks is the number of ticks before a leads-off recording
// session is abandoned.
func (e Engine) DisconnectTicks() uint32 {
	return uint32(e.DisconnectTimeout / e.TickPeriod)
}

// AvailabilityTicks is the number of idle ticks before the device powers
// itself down.
func (e Engine) AvailabilityTicks() uint32 {
	return uint32(e.AvailabilityTime / e.TickPeriod)
}

package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"imu-fusion/services/fusion"
)

// ─── Input configs ──────────────────────────────────────────────────────

// Input sources understood by the sensors controller.
const (
	SourceFile   = "file"
	SourceSerial = "serial"
	SourceSim    = "sim"
)

type FileConfig struct {
	Path        string  `yaml:"path"`
	ReplaySpeed float64 `yaml:"replay_speed"` // 0 = as fast as possible, 1 = real time
}

type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

type SimulationConfig struct {
	UpdateRateHz    int     `yaml:"update_rate_hz"`
	DurationSeconds int     `yaml:"duration_seconds"`
	YawRate         float64 `yaml:"yaw_rate"` // rad/s about z
}

type InputConfig struct {
	Source        string           `yaml:"source"` // file | serial | sim
	ChannelBuffer int              `yaml:"channel_buffer"`
	File          FileConfig       `yaml:"file"`
	Serial        SerialConfig     `yaml:"serial"`
	Simulation    SimulationConfig `yaml:"simulation"`
}

// SensorsConfig is the top-level structure for sensors.yaml.
type SensorsConfig struct {
	Input  InputConfig   `yaml:"input"`
	Fusion fusion.Config `yaml:"fusion"`
}

// ─── Storage configs ────────────────────────────────────────────────────

// Output formats understood by the recording controller.
const (
	FormatText   = "text"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

type StorageConfig struct {
	Storage struct {
		BaseDir         string `yaml:"base_dir"`
		SessionPrefix   string `yaml:"session_prefix"`
		Format          string `yaml:"format"` // text | csv | sqlite
		FlushIntervalMs int    `yaml:"flush_interval_ms"`
		BufferSizeKB    int    `yaml:"buffer_size_kb"`
		WriteHeader     bool   `yaml:"write_header"`
		Overwrite       bool   `yaml:"overwrite"`
		RecordSamples   bool   `yaml:"record_samples"` // also keep the raw input as samples.csv
	} `yaml:"storage"`
}

// ─── Loaders ────────────────────────────────────────────────────────────

// LoadSensorsConfig reads and parses sensors.yaml.
func LoadSensorsConfig(path string) (*SensorsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sensors config: %w", err)
	}
	var cfg SensorsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse sensors config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("sensors config: %w", err)
	}
	return &cfg, nil
}

func (c *SensorsConfig) applyDefaults() error {
	switch c.Input.Source {
	case "":
		c.Input.Source = SourceFile
	case SourceFile, SourceSerial, SourceSim:
	default:
		return fmt.Errorf("unknown input source %q: expected file, serial or sim", c.Input.Source)
	}
	if c.Input.ChannelBuffer <= 0 {
		c.Input.ChannelBuffer = 512
	}
	if c.Input.File.ReplaySpeed < 0 {
		return fmt.Errorf("invalid replay speed %g", c.Input.File.ReplaySpeed)
	}
	if c.Input.Simulation.UpdateRateHz <= 0 {
		c.Input.Simulation.UpdateRateHz = 100
	}

	fc, err := c.Fusion.Normalize()
	if err != nil {
		return err
	}
	c.Fusion = fc
	return nil
}

// LoadStorageConfig reads and parses storage.yaml.
func LoadStorageConfig(path string) (*StorageConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storage config: %w", err)
	}
	var cfg StorageConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse storage config: %w", err)
	}

	s := &cfg.Storage
	switch s.Format {
	case "":
		s.Format = FormatText
	case FormatText, FormatCSV, FormatSQLite:
	default:
		return nil, fmt.Errorf("storage config: unknown format %q: expected text, csv or sqlite", s.Format)
	}
	if s.BaseDir == "" {
		s.BaseDir = "output"
	}
	if s.SessionPrefix == "" {
		s.SessionPrefix = "session"
	}
	return &cfg, nil
}

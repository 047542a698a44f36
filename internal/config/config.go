// Package config loads the server's session configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Addr is the websocket listen address.
	Addr string `yaml:"addr"`
	// TickRateHz drives the session loop frequency.
	TickRateHz int `yaml:"tick_rate_hz"`
	// DataDir is the runtime data directory (transcripts, update logs).
	DataDir string `yaml:"data_dir"`
	// MaxClientQueue bounds a frontend's outbound message queue; a
	// frontend that falls further behind is dropped.
	MaxClientQueue int `yaml:"max_client_queue"`

	Transcript TranscriptConfig `yaml:"transcript"`
}

type TranscriptConfig struct {
	// Enabled turns on session recording. The protocol itself persists
	// nothing; recording is observational.
	Enabled bool `yaml:"enabled"`
	// UpdateLog additionally writes the raw compressed JSONL update log.
	UpdateLog bool `yaml:"update_log"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Addr:           ":8080",
		TickRateHz:     20,
		DataDir:        "./data",
		MaxClientQueue: 32,
		Transcript: TranscriptConfig{
			Enabled:   true,
			UpdateLog: false,
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":8080"
	}
	if c.TickRateHz == 0 {
		c.TickRateHz = 20
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
	if c.MaxClientQueue == 0 {
		c.MaxClientQueue = 32
	}
}

func (c Config) Validate() error {
	if c.TickRateHz < 1 || c.TickRateHz > 240 {
		return fmt.Errorf("tick_rate_hz must be in [1, 240], got %d", c.TickRateHz)
	}
	if c.MaxClientQueue < 1 {
		return fmt.Errorf("max_client_queue must be >= 1, got %d", c.MaxClientQueue)
	}
	return nil
}

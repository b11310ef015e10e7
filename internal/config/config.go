// Package config loads proofcoach configuration from the config file in the
// data directory and overlays environment variables on top of it.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for proofcoach.
type Config struct {
	// APIKey authenticates against the chat completion API.
	// OPENAI_API_KEY is honored so existing setups keep working.
	APIKey string `yaml:"api_key" env:"OPENAI_API_KEY"`

	// BaseURL points at an OpenAI-compatible endpoint. Empty means the
	// official OpenAI API.
	BaseURL string `yaml:"base_url" env:"PROOFCOACH_BASE_URL"`

	// Models is the fallback chain tried in order until one call succeeds.
	Models []string `yaml:"models" env:"PROOFCOACH_MODELS" envSeparator:","`

	// Temperature for the diagnosis call.
	Temperature float32 `yaml:"temperature" env:"PROOFCOACH_TEMPERATURE"`

	// MinChars is the minimum explanation length in characters.
	MinChars int `yaml:"min_chars" env:"PROOFCOACH_MIN_CHARS"`

	// HistoryLimit caps how many records history views load by default.
	HistoryLimit int `yaml:"history_limit" env:"PROOFCOACH_HISTORY_LIMIT"`

	// OutputsDir overrides where record JSON files are written.
	OutputsDir string `yaml:"outputs_dir" env:"PROOFCOACH_OUTPUTS_DIR"`

	// ListenAddr is the HTTP server bind address for serve mode.
	ListenAddr string `yaml:"listen_addr" env:"PROOFCOACH_LISTEN_ADDR"`

	// LogLevel controls logging verbosity ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level" env:"PROOFCOACH_LOG_LEVEL"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Models:       []string{"gpt-4o-mini", "gpt-4.1-mini"},
		Temperature:  0.2,
		MinChars:     60,
		HistoryLimit: 50,
		ListenAddr:   "127.0.0.1:8501",
		LogLevel:     "info",
	}
}

// Load reads the config file at path (missing file is fine) and then applies
// environment variable overrides. Defaults are used for anything left unset.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	d := Default()
	if len(c.Models) == 0 {
		c.Models = d.Models
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.MinChars <= 0 {
		c.MinChars = d.MinChars
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

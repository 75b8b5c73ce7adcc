// Package config loads server and registry configuration from an optional
// YAML file with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Registry RegistryConfig `yaml:"registry"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// RegistryConfig holds the registry's economic and timing constants. They
// are read once at startup and treated as unlikely to change.
type RegistryConfig struct {
	DurationCostFactor   uint64        `yaml:"duration_cost_factor"`
	EditBufferCostFactor uint64        `yaml:"edit_buffer_cost_factor"`
	ChallengePeriod      time.Duration `yaml:"challenge_period"`
	TimeUnit             time.Duration `yaml:"time_unit"`
	MaxEditBuffer        uint8         `yaml:"max_edit_buffer"`
	SystemAccount        string        `yaml:"system_account"`
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("60s", "24h")
// and leaves fields absent from the document at their prior values.
func (r *RegistryConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DurationCostFactor   *uint64 `yaml:"duration_cost_factor"`
		EditBufferCostFactor *uint64 `yaml:"edit_buffer_cost_factor"`
		ChallengePeriod      string  `yaml:"challenge_period"`
		TimeUnit             string  `yaml:"time_unit"`
		MaxEditBuffer        *uint8  `yaml:"max_edit_buffer"`
		SystemAccount        string  `yaml:"system_account"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.DurationCostFactor != nil {
		r.DurationCostFactor = *raw.DurationCostFactor
	}
	if raw.EditBufferCostFactor != nil {
		r.EditBufferCostFactor = *raw.EditBufferCostFactor
	}
	if raw.ChallengePeriod != "" {
		d, err := time.ParseDuration(raw.ChallengePeriod)
		if err != nil {
			return fmt.Errorf("challenge_period: %w", err)
		}
		r.ChallengePeriod = d
	}
	if raw.TimeUnit != "" {
		d, err := time.ParseDuration(raw.TimeUnit)
		if err != nil {
			return fmt.Errorf("time_unit: %w", err)
		}
		r.TimeUnit = d
	}
	if raw.MaxEditBuffer != nil {
		r.MaxEditBuffer = *raw.MaxEditBuffer
	}
	if raw.SystemAccount != "" {
		r.SystemAccount = raw.SystemAccount
	}
	return nil
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "easel.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Registry: RegistryConfig{
			DurationCostFactor:   1000,
			EditBufferCostFactor: 1,
			ChallengePeriod:      60 * time.Second,
			TimeUnit:             24 * time.Hour,
			MaxEditBuffer:        50,
			SystemAccount:        "registry",
		},
	}

	if path := os.Getenv("EASEL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("EASEL_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("EASEL_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EASEL_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("EASEL_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("EASEL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects parameter combinations the cost arithmetic cannot carry.
func (c Config) Validate() error {
	r := c.Registry
	if r.MaxEditBuffer > 50 {
		return fmt.Errorf("max_edit_buffer %d exceeds supported ceiling 50", r.MaxEditBuffer)
	}
	// The worst-case cost (df + ef * 2^maxEB) * maxDuration must fit in
	// uint64; 2^50 * maxDuration already consumes 66 bits times ef.
	const maxDuration = 1<<16 - 1
	perUnit := r.EditBufferCostFactor << r.MaxEditBuffer
	if r.EditBufferCostFactor != 0 && perUnit>>r.MaxEditBuffer != r.EditBufferCostFactor {
		return fmt.Errorf("edit_buffer_cost_factor %d overflows at max_edit_buffer %d", r.EditBufferCostFactor, r.MaxEditBuffer)
	}
	perUnit += r.DurationCostFactor
	if perUnit < r.DurationCostFactor {
		return fmt.Errorf("cost factors overflow")
	}
	if perUnit != 0 && perUnit > (1<<64-1)/maxDuration {
		return fmt.Errorf("cost factors overflow at maximum duration")
	}
	if r.ChallengePeriod <= 0 || r.TimeUnit <= 0 {
		return fmt.Errorf("challenge_period and time_unit must be positive")
	}
	if r.SystemAccount == "" {
		return fmt.Errorf("system_account must be set")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

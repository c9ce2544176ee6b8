// Package config loads absim settings from defaults, an optional YAML
// file, a .env file and ABSIM_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gkobilansky/ab-sim/internal/sample"
	"github.com/gkobilansky/ab-sim/internal/stats"
)

// Config holds every tunable setting.
type Config struct {
	Simulation sample.Params    `yaml:"simulation"`
	Power      stats.PowerQuery `yaml:"power"`
	Server     ServerConfig     `yaml:"server"`
}

// ServerConfig holds report server settings
type ServerConfig struct {
	Port           int   `yaml:"port"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Simulation: sample.Params{NA: 1000, PA: 0.10, NB: 1000, PB: 0.12},
		Power: stats.PowerQuery{
			MDE:         0.05,
			Power:       0.8,
			Alpha:       stats.Alpha,
			Alternative: stats.TwoSided,
			Scale:       stats.EffectStandardized,
		},
		Server: ServerConfig{
			Port:           8080,
			MaxUploadBytes: 10 << 20,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	set := func(dst *int, key string) {
		if err == nil {
			*dst, err = getEnvInt(key, *dst)
		}
	}
	setFloat := func(dst *float64, key string) {
		if err == nil {
			*dst, err = getEnvFloat(key, *dst)
		}
	}

	set(&c.Simulation.NA, "ABSIM_N_A")
	setFloat(&c.Simulation.PA, "ABSIM_P_A")
	set(&c.Simulation.NB, "ABSIM_N_B")
	setFloat(&c.Simulation.PB, "ABSIM_P_B")
	setFloat(&c.Power.MDE, "ABSIM_MDE")
	setFloat(&c.Power.Power, "ABSIM_POWER")
	set(&c.Server.Port, "ABSIM_PORT")
	if err != nil {
		return err
	}

	if v := os.Getenv("ABSIM_SEED"); v != "" {
		seed, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil {
			return fmt.Errorf("ABSIM_SEED: %w", perr)
		}
		c.Simulation.Seed = seed
	}
	c.Power.Scale = stats.EffectScale(getEnvOrDefault("ABSIM_MDE_SCALE", string(c.Power.Scale)))
	return nil
}

// Validate rejects settings no analysis could run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Simulation.NA < 1 || c.Simulation.NB < 1 {
		return fmt.Errorf("%w: simulated sample sizes must be at least 1", stats.ErrInvalidInput)
	}
	if c.Simulation.PA < 0 || c.Simulation.PA > 1 || c.Simulation.PB < 0 || c.Simulation.PB > 1 {
		return fmt.Errorf("%w: simulated conversion rates must be in [0, 1]", stats.ErrInvalidInput)
	}
	return c.Power.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

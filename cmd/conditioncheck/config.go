package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the configuration of a conditioncheck run
type Config struct {
	// Path of the YAML scenario file
	ScenariosPath string `env:"CONDITION_SCENARIOS" envDefault:"scenarios.yaml"`

	// Stop at the first failing scenario
	FailFast bool `env:"FAIL_FAST" envDefault:"false"`

	// PostgreSQL connection for scenarios with a query, optional
	DatabaseURL  string        `env:"DATABASE_URL"`
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"30s"`

	// Prometheus textfile written after the run, optional
	MetricsFile string `env:"METRICS_FILE"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ScenariosPath == "" {
		return fmt.Errorf("CONDITION_SCENARIOS is required")
	}

	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// String returns a string representation of the config (without the database URL)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{ScenariosPath=%s, FailFast=%v, Database=%v, QueryTimeout=%s, MetricsFile=%s, LogLevel=%s}",
		c.ScenariosPath,
		c.FailFast,
		c.DatabaseURL != "",
		c.QueryTimeout,
		c.MetricsFile,
		c.LogLevel,
	)
}

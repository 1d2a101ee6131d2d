package config

import (
	"errors"

	"github.com/kelseyhightower/envconfig"
)

// ErrMasterKeyTooShort is returned when the configured master key is shorter
// than the 32 bytes required for key derivation.
var ErrMasterKeyTooShort = errors.New("VAULT_MASTER_KEY must be at least 32 bytes")

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port            int    `envconfig:"PORT" default:"8080"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL     string `envconfig:"DATABASE_URL" required:"true"`
	MasterKey       string `envconfig:"VAULT_MASTER_KEY" required:"true"`
	Version         string `envconfig:"VERSION" default:"dev"`
	LinkTTLHours    int    `envconfig:"ONE_TIME_LINK_TTL_HOURS" default:"24"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"15"`
}

// Load reads configuration from environment variables into a Config struct.
// It fails when the master key is missing or too short; a process that cannot
// derive valid encryption keys must not start.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if len(cfg.MasterKey) < 32 {
		return nil, ErrMasterKeyTooShort
	}
	return &cfg, nil
}

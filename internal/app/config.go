package app

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// InactivityTimeout is how long a token may sit idle before it
	// expires permanently.
	InactivityTimeout time.Duration `envconfig:"INACTIVITY_TIMEOUT" default:"30m"`

	// BcryptCost is the hashing cost for password credentials. Lowering
	// it below the library default is only sensible in tests.
	BcryptCost int `envconfig:"BCRYPT_COST" default:"10"`

	// ScriptPath, when set, points at a command script to run instead of
	// reading commands from stdin.
	ScriptPath string `envconfig:"SCRIPT_PATH"`
}

// LoadConfig reads configuration from ENTITLEMENT_-prefixed environment
// variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("entitlement", &cfg); err != nil {
		return nil, err
	}
	if cfg.InactivityTimeout <= 0 {
		return nil, fmt.Errorf("inactivity timeout must be positive, got %s", cfg.InactivityTimeout)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Auth.SigningSecret == "" {
		return errors.New("auth.signing_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required for postgres storage")
		}
	default:
		return fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type)
	}

	if c.Quota.Default.MaxRequests > 0 && c.Quota.Default.WindowMinutes <= 0 {
		return errors.New("quota.default.window_minutes must be positive")
	}
	for i, tier := range c.Quota.Tiers {
		if tier.PathPrefix == "" {
			return fmt.Errorf("quota.tiers[%d].path_prefix is required", i)
		}
		if tier.MaxRequests > 0 && tier.WindowMinutes <= 0 {
			return fmt.Errorf("quota.tiers[%d].window_minutes must be positive", i)
		}
	}

	if c.Providers.Timeout <= 0 {
		return errors.New("providers.timeout must be positive")
	}

	return nil
}

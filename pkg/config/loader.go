package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load assembles the effective configuration. Defaults come first, a YAML
// file (if one is found) layers on top, MODELGATE_* environment variables
// override both, and _file references are resolved last so secrets can live
// outside the config file. The result is validated before it is returned.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := findConfigFile(configPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// findConfigFile returns the config file to use, or "" to run on defaults
// and environment alone. An explicit path or MODELGATE_CONFIG is trusted
// as-is; the well-known locations are used only when they exist.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("MODELGATE_CONFIG"); env != "" {
		return env
	}
	for _, path := range []string{"config.yaml", "/etc/modelgate/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// applyEnvOverrides maps MODELGATE_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODELGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MODELGATE_SIGNING_SECRET"); v != "" {
		cfg.Auth.SigningSecret = v
	}
	if v := os.Getenv("MODELGATE_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("MODELGATE_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("MODELGATE_OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("MODELGATE_ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("MODELGATE_GOOGLE_API_KEY"); v != "" {
		cfg.Providers.Google.APIKey = v
	}
	if v := os.Getenv("MODELGATE_COHERE_API_KEY"); v != "" {
		cfg.Providers.Cohere.APIKey = v
	}
}

// resolveFileReferences loads values for fields with a _file counterpart.
// The inline value wins when both are set.
func resolveFileReferences(cfg *Config) error {
	resolve := func(value, file, name string) (string, error) {
		if value != "" || file == "" {
			return value, nil
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from %s: %w", name, file, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	var err error
	if cfg.Auth.SigningSecret, err = resolve(cfg.Auth.SigningSecret, cfg.Auth.SigningSecretFile, "signing secret"); err != nil {
		return err
	}
	if cfg.Storage.Postgres.DSN, err = resolve(cfg.Storage.Postgres.DSN, cfg.Storage.Postgres.DSNFile, "postgres dsn"); err != nil {
		return err
	}

	providers := []*ProviderConfig{
		&cfg.Providers.OpenAI,
		&cfg.Providers.Anthropic,
		&cfg.Providers.Google,
		&cfg.Providers.Cohere,
	}
	for _, p := range providers {
		if p.APIKey, err = resolve(p.APIKey, p.APIKeyFile, "provider api key"); err != nil {
			return err
		}
	}

	return nil
}

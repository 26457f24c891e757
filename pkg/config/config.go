// Package config provides unified configuration for the modelgate gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MODELGATE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Quota         QuotaConfig         `yaml:"quota"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 150s

	// IdentityRPM caps pre-auth requests per IP per minute on the
	// register/login endpoints. 0 disables the cap.
	IdentityRPM int `yaml:"identity_rpm"`
}

// AuthConfig holds credential verification settings. The signing secret is
// loaded once at process start and immutable thereafter.
type AuthConfig struct {
	SigningSecret     string        `yaml:"signing_secret"`
	SigningSecretFile string        `yaml:"signing_secret_file"` // _file variant
	TokenTTL          time.Duration `yaml:"token_ttl"`           // default: 24h
	BcryptCost        int           `yaml:"bcrypt_cost"`         // 0 = library default
}

// StorageConfig holds durable store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// TierConfig is one endpoint-class quota tier.
type TierConfig struct {
	PathPrefix    string `yaml:"path_prefix"`
	MaxRequests   int    `yaml:"max_requests"`
	WindowMinutes int    `yaml:"window_minutes"`
}

// QuotaConfig holds the endpoint quota table and the fallback tier.
type QuotaConfig struct {
	Default TierConfig   `yaml:"default"`
	Tiers   []TierConfig `yaml:"tiers"`
}

// ProviderConfig holds one upstream provider's credential and endpoint.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string `yaml:"base_url"`
}

// ProvidersConfig holds the per-provider upstream settings.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Google    ProviderConfig `yaml:"google"`
	Cohere    ProviderConfig `yaml:"cohere"`

	// Timeout bounds every upstream call. Default: 120s.
	Timeout time.Duration `yaml:"timeout"`
}

// AuditConfig holds audit logger settings.
type AuditConfig struct {
	BufferSize int `yaml:"buffer_size"` // default: 256
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 150 * time.Second,
			IdentityRPM:  30,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Quota: QuotaConfig{
			Default: TierConfig{MaxRequests: 60, WindowMinutes: 1},
			Tiers: []TierConfig{
				{PathPrefix: "/chat", MaxRequests: 20, WindowMinutes: 1},
				{PathPrefix: "/completion", MaxRequests: 20, WindowMinutes: 1},
				{PathPrefix: "/models", MaxRequests: 60, WindowMinutes: 1},
			},
		},
		Providers: ProvidersConfig{
			Timeout: 120 * time.Second,
		},
		Audit: AuditConfig{
			BufferSize: 256,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

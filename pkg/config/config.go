// Package config provides unified configuration for the llmhub server and CLI.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (LLMHUB_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"context"
	"time"

	"github.com/rhuss/llmhub/pkg/credentials"
)

// Config holds all configuration for llmhub.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Hub           HubConfig           `yaml:"hub"`
	Credentials   []CredentialsConfig `yaml:"credentials"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log level and debug category settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // default: "INFO"
	Debug string `yaml:"debug"` // comma-separated categories or "all"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 300s
	MaxBodySize  int64         `yaml:"max_body_size"` // default: 10 MiB
}

// HubConfig holds settings for calls to the LLM Hub.
type HubConfig struct {
	Timeout            time.Duration `yaml:"timeout"`             // default: 120s
	Locale             string        `yaml:"locale"`              // default: "en", used to sort model names
	DefaultCredentials string        `yaml:"default_credentials"` // default: "telekomLlmApi"
}

// CredentialsConfig describes one named credential set for the hub.
type CredentialsConfig struct {
	Name       string            `yaml:"name"`
	BaseURL    string            `yaml:"base_url"`     // default: production hub URL
	APIKey     string            `yaml:"api_key"`      // optional
	APIKeyFile string            `yaml:"api_key_file"` // _file variant for api_key
	Headers    map[string]string `yaml:"headers"`
}

// StorageConfig holds execution record settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 1000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// MCPConfig holds settings for the MCP front-end, which exposes the node
// as tools over the streamable HTTP transport.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Path    string `yaml:"path"`    // default: "/mcp"
}

// AuthConfig holds authentication settings for the host API.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject     string `yaml:"subject" json:"subject"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`
}

// JWTConfig holds settings for HMAC-signed bearer tokens.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	TierClaim  string `yaml:"tier_claim"` // default: "tier"
}

// RateLimitConfig holds per-tier request limits. Zero disables limiting.
type RateLimitConfig struct {
	DefaultRPM int            `yaml:"default_rpm"`
	Tiers      map[string]int `yaml:"tiers"` // tier name -> requests per minute
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
			MaxBodySize:  10 << 20,
		},
		Hub: HubConfig{
			Timeout:            120 * time.Second,
			Locale:             "en",
			DefaultCredentials: credentials.DefaultName,
		},
		Auth: AuthConfig{
			Type: "none",
			JWT: JWTConfig{
				TierClaim: "tier",
			},
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 1000,
			Postgres: PostgresConfig{
				MaxConns:       10,
				MigrateOnStart: true,
			},
		},
		MCP: MCPConfig{
			Path: "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// CredentialStore builds the credential store described by the config.
// When no credential set is named like Hub.DefaultCredentials, one is
// added with the production base URL.
func (c *Config) CredentialStore() *credentials.Store {
	store := credentials.NewStore(nil)
	for _, cc := range c.Credentials {
		store.Put(cc.Name, credentials.Credentials{
			BaseURL: cc.BaseURL,
			APIKey:  cc.APIKey,
			Headers: cc.Headers,
		})
	}

	if _, err := store.Credentials(context.Background(), c.Hub.DefaultCredentials); err != nil {
		store.Put(c.Hub.DefaultCredentials, credentials.Credentials{BaseURL: credentials.DefaultBaseURL})
	}
	return store
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Hub.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("hub.timeout must be > 0, got %s", c.Hub.Timeout))
	}
	if _, err := language.Parse(c.Hub.Locale); err != nil {
		errs = append(errs, fmt.Errorf("hub.locale %q is not a valid language tag", c.Hub.Locale))
	}
	if c.Hub.DefaultCredentials == "" {
		errs = append(errs, fmt.Errorf("hub.default_credentials is required"))
	}

	// Credential names must be unique and base URLs absolute.
	seen := make(map[string]bool, len(c.Credentials))
	for i, cc := range c.Credentials {
		if cc.Name == "" {
			errs = append(errs, fmt.Errorf("credentials[%d].name is required", i))
		} else if seen[cc.Name] {
			errs = append(errs, fmt.Errorf("credentials[%d].name %q is duplicated", i, cc.Name))
		}
		seen[cc.Name] = true

		if cc.BaseURL != "" {
			if u, err := url.Parse(cc.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("credentials[%d].base_url must be an absolute URL, got %q", i, cc.BaseURL))
			}
		}
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys is required when auth.type is \"apikey\""))
		}
	case "jwt":
		if c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.RateLimit.DefaultRPM < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_limit.default_rpm must be >= 0, got %d", c.Auth.RateLimit.DefaultRPM))
	}

	switch c.Storage.Type {
	case "none":
	case "memory":
		if c.Storage.MaxSize < 0 {
			errs = append(errs, fmt.Errorf("storage.max_size must be >= 0, got %d", c.Storage.MaxSize))
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"none\", \"memory\", or \"postgres\", got %q", c.Storage.Type))
	}

	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path must start with \"/\", got %q", c.MCP.Path))
	}

	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Path == "" {
		errs = append(errs, fmt.Errorf("observability.metrics.path is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}

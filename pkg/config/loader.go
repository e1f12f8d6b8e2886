package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// searchPaths are tried in order when neither an explicit path nor
// LLMHUB_CONFIG names a config file.
var searchPaths = []string{"config.yaml", "/etc/llmhub/config.yaml"}

// Load builds the configuration from defaults, the YAML file (if any),
// LLMHUB_* environment variables and *_file secret references, then
// validates it.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := findConfigFile(configPath); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := resolveSecrets(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("LLMHUB_CONFIG"); p != "" {
		return p
	}
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnv overrides config fields from LLMHUB_* variables. Values that
// do not parse are ignored.
func applyEnv(cfg *Config) {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
			*dst = n
		}
	}

	setInt("LLMHUB_PORT", &cfg.Server.Port)
	if d, err := time.ParseDuration(os.Getenv("LLMHUB_TIMEOUT")); err == nil {
		cfg.Hub.Timeout = d
	}
	setString("LLMHUB_LOCALE", &cfg.Hub.Locale)
	setString("LLMHUB_AUTH_TYPE", &cfg.Auth.Type)
	setString("LLMHUB_STORAGE", &cfg.Storage.Type)
	setInt("LLMHUB_STORAGE_SIZE", &cfg.Storage.MaxSize)
	setString("LLMHUB_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	if on, err := strconv.ParseBool(os.Getenv("LLMHUB_MCP_ENABLED")); err == nil {
		cfg.MCP.Enabled = on
	}
	setString("LLMHUB_LOG_LEVEL", &cfg.Logging.Level)
	setString("LLMHUB_DEBUG", &cfg.Logging.Debug)

	// LLMHUB_BASE_URL and LLMHUB_API_KEY target the default credential set.
	if os.Getenv("LLMHUB_BASE_URL") != "" || os.Getenv("LLMHUB_API_KEY") != "" {
		cc := defaultCredentials(cfg)
		setString("LLMHUB_BASE_URL", &cc.BaseURL)
		setString("LLMHUB_API_KEY", &cc.APIKey)
	}

	if v := os.Getenv("LLMHUB_API_KEYS"); v != "" {
		var keys []APIKeyConfig
		if err := json.Unmarshal([]byte(v), &keys); err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}
}

// defaultCredentials returns the credential entry named by
// hub.default_credentials, appending one if absent.
func defaultCredentials(cfg *Config) *CredentialsConfig {
	for i := range cfg.Credentials {
		if cfg.Credentials[i].Name == cfg.Hub.DefaultCredentials {
			return &cfg.Credentials[i]
		}
	}
	cfg.Credentials = append(cfg.Credentials, CredentialsConfig{Name: cfg.Hub.DefaultCredentials})
	return &cfg.Credentials[len(cfg.Credentials)-1]
}

// secretRef is a *_file field and the value field it fills.
type secretRef struct {
	field string
	file  string
	dst   *string
}

// resolveSecrets fills each empty value field from its *_file reference,
// trimming surrounding whitespace. Values set directly win.
func resolveSecrets(cfg *Config) error {
	refs := []secretRef{
		{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN},
		{"auth.jwt.secret_file", cfg.Auth.JWT.SecretFile, &cfg.Auth.JWT.Secret},
	}
	for i := range cfg.Credentials {
		c := &cfg.Credentials[i]
		refs = append(refs, secretRef{fmt.Sprintf("credentials[%d].api_key_file", i), c.APIKeyFile, &c.APIKey})
	}
	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		refs = append(refs, secretRef{fmt.Sprintf("auth.api_keys[%d].key_file", i), k.KeyFile, &k.Key})
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.dst != "" {
			continue
		}
		data, err := os.ReadFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.field, err)
		}
		*ref.dst = strings.TrimSpace(string(data))
	}
	return nil
}

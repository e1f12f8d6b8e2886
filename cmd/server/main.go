// Command server runs the llmhub node host API.
//
// Configuration is read from a YAML file (see -config, LLMHUB_CONFIG,
// ./config.yaml, /etc/llmhub/config.yaml) with environment overrides:
//
//	LLMHUB_PORT       - Listen port (default: 8080)
//	LLMHUB_BASE_URL   - Hub base URL of the default credential set
//	LLMHUB_API_KEY    - Hub API key of the default credential set
//	LLMHUB_TIMEOUT    - Per-call hub timeout (default: 120s)
//	LLMHUB_LOCALE     - Locale used to sort model names (default: en)
//	LLMHUB_AUTH_TYPE  - Host API auth: "none", "apikey" or "jwt"
//	LLMHUB_STORAGE    - Execution records: "none", "memory" or "postgres"
//	LLMHUB_STORAGE_SIZE - Max records in the memory store (default: 1000)
//	LLMHUB_POSTGRES_DSN - PostgreSQL connection string
//	LLMHUB_MCP_ENABLED  - Serve the node as MCP tools (default: false)
//	LLMHUB_LOG_LEVEL  - TRACE, DEBUG, INFO, WARN or ERROR
//	LLMHUB_DEBUG      - Debug categories, comma-separated or "all"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"

	"github.com/rhuss/llmhub/pkg/auth"
	"github.com/rhuss/llmhub/pkg/auth/apikey"
	"github.com/rhuss/llmhub/pkg/auth/jwt"
	"github.com/rhuss/llmhub/pkg/auth/noop"
	"github.com/rhuss/llmhub/pkg/config"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/hub"
	"github.com/rhuss/llmhub/pkg/models"
	"github.com/rhuss/llmhub/pkg/node"
	"github.com/rhuss/llmhub/pkg/observability"
	"github.com/rhuss/llmhub/pkg/storage/memory"
	"github.com/rhuss/llmhub/pkg/storage/postgres"
	"github.com/rhuss/llmhub/pkg/transport"
	transporthttp "github.com/rhuss/llmhub/pkg/transport/http"
	"github.com/rhuss/llmhub/pkg/transport/mcp"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)
	if cats := debug.Categories(); len(cats) > 0 {
		slog.Info("debug logging enabled", "categories", cats)
	}

	client := hub.NewClient(hub.Config{Timeout: cfg.Hub.Timeout})
	defer client.Close()

	n := node.New(client,
		node.WithLogger(slog.Default()),
		node.WithResolverOptions(models.WithLocale(language.Make(cfg.Hub.Locale))),
	)

	chain, err := buildAuthChain(cfg.Auth)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}
	limiter := auth.NewInProcessLimiter(cfg.Auth.RateLimit.Tiers, cfg.Auth.RateLimit.DefaultRPM)

	bypass := append([]string(nil), auth.DefaultBypassEndpoints...)
	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithDefaultCredentials(cfg.Hub.DefaultCredentials),
	}
	if cfg.Observability.Metrics.Enabled {
		if !slices.Contains(bypass, cfg.Observability.Metrics.Path) {
			bypass = append(bypass, cfg.Observability.Metrics.Path)
		}
		opts = append(opts,
			transporthttp.WithRoute("GET "+cfg.Observability.Metrics.Path, promhttp.Handler()),
			transporthttp.WithMiddleware(observability.MetricsMiddleware),
		)
		slog.Info("metrics enabled", "path", cfg.Observability.Metrics.Path)
	}
	opts = append(opts, transporthttp.WithMiddleware(auth.Middleware(chain, limiter, bypass)))

	creds := cfg.CredentialStore()
	slog.Info("credentials loaded", "names", creds.Names(), "default", cfg.Hub.DefaultCredentials)
	slog.Info("auth configured", "type", cfg.Auth.Type)

	execStore, err := createStore(context.Background(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating execution store: %w", err)
	}
	if execStore != nil {
		defer execStore.Close()
		opts = append(opts, transporthttp.WithStore(execStore))
	}

	if cfg.MCP.Enabled {
		tools := mcp.NewServer(n, creds, cfg.Hub.DefaultCredentials)
		opts = append(opts, transporthttp.WithRoute(cfg.MCP.Path, tools.Handler()))
		slog.Info("mcp tools enabled", "path", cfg.MCP.Path)
	}

	srv := transporthttp.NewServer(n, creds, opts...)
	return srv.ListenAndServe()
}

// createStore builds the execution store for the configured type. It
// returns nil when records are disabled.
func createStore(ctx context.Context, cfg config.StorageConfig) (transport.ExecutionStore, error) {
	switch cfg.Type {
	case "none":
		slog.Info("execution records disabled")
		return nil, nil

	case "", "memory":
		slog.Info("execution records in memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil

	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("execution records in postgres", "max_conns", cfg.Postgres.MaxConns)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// buildAuthChain creates the authenticator chain for the configured auth type.
func buildAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	switch cfg.Type {
	case "", "none":
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}, nil

	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key:      k.Key,
				Identity: auth.Identity{Subject: k.Subject, ServiceTier: k.ServiceTier},
			})
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}, nil

	case "jwt":
		authn, err := jwt.New(jwt.Config{
			Secret:    []byte(cfg.JWT.Secret),
			Issuer:    cfg.JWT.Issuer,
			Audience:  cfg.JWT.Audience,
			TierClaim: cfg.JWT.TierClaim,
		})
		if err != nil {
			return nil, err
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{authn},
			DefaultDecision: auth.No,
		}, nil

	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

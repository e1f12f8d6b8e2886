// Package jwt provides a bearer-token authenticator for HMAC-signed JWTs.
//
// Tokens are verified against a shared secret with configurable issuer and
// audience. The subject, service tier and scopes are read from claims.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/llmhub/pkg/auth"
	"github.com/rhuss/llmhub/pkg/debug"
)

// Config configures the authenticator. Only Secret is required.
type Config struct {
	Secret []byte

	// Issuer and Audience are checked when set.
	Issuer   string
	Audience string

	// Claim names for the subject, service tier and scopes. Scopes may be a
	// space-separated string or an array. Defaults: sub, tier, scope.
	UserClaim   string
	TierClaim   string
	ScopesClaim string

	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Authenticator validates HMAC-signed JWT bearer tokens.
type Authenticator struct {
	config Config
	parser *jwtlib.Parser
}

var _ auth.Authenticator = (*Authenticator)(nil)

// New creates a JWT authenticator. It fails when no secret is configured.
func New(cfg Config) (*Authenticator, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt: secret is required")
	}
	cfg.UserClaim = orDefault(cfg.UserClaim, "sub")
	cfg.TierClaim = orDefault(cfg.TierClaim, "tier")
	cfg.ScopesClaim = orDefault(cfg.ScopesClaim, "scope")

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwtlib.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwtlib.WithLeeway(cfg.Leeway))
	}
	return &Authenticator{config: cfg, parser: jwtlib.NewParser(opts...)}, nil
}

// Authenticate abstains without a Bearer token and votes No for a token
// that fails verification or lacks a subject.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	raw, ok := auth.BearerToken(r)
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	reject := func(err error) auth.AuthResult {
		debug.Log("auth", "JWT rejected", "error", err)
		return auth.AuthResult{Decision: auth.No, Err: err}
	}
	if raw == "" {
		return reject(errors.New("empty bearer token"))
	}

	claims := jwtlib.MapClaims{}
	token, err := a.parser.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return a.config.Secret, nil
	})
	switch {
	case err != nil:
		return reject(fmt.Errorf("invalid JWT: %w", err))
	case !token.Valid:
		return reject(errors.New("invalid JWT claims"))
	}

	subject, _ := claims[a.config.UserClaim].(string)
	if subject == "" {
		return reject(fmt.Errorf("JWT missing %q claim", a.config.UserClaim))
	}
	tier, _ := claims[a.config.TierClaim].(string)

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			Subject:     subject,
			ServiceTier: tier,
			Scopes:      scopes(claims[a.config.ScopesClaim]),
		},
	}
}

func scopes(v any) []string {
	var out []string
	switch v := v.(type) {
	case string:
		out = strings.Fields(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

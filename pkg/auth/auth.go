package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// AuthDecision is an authenticator's vote on a request.
type AuthDecision int

const (
	// Yes accepts the request with the returned identity.
	Yes AuthDecision = iota
	// No rejects the request. Later authenticators are not consulted.
	No
	// Abstain passes the request on to the next authenticator.
	Abstain
)

// AuthResult is the outcome of one Authenticate call. Identity is set for
// Yes, Err for No.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity
	Err      error
}

// Identity is the caller a request runs as. Execution records are owned
// by its Subject and rate limits are picked by its tier.
type Identity struct {
	Subject     string
	ServiceTier string
	Scopes      []string
	Metadata    map[string]string
}

// DefaultTier is the service tier of callers without an explicit one.
const DefaultTier = "default"

// Tier returns the service tier, or DefaultTier when none is set.
func (id *Identity) Tier() string {
	if id == nil || id.ServiceTier == "" {
		return DefaultTier
	}
	return id.ServiceTier
}

// Anonymous returns the identity used when authentication is disabled.
func Anonymous() *Identity {
	return &Identity{Subject: "anonymous", ServiceTier: DefaultTier}
}

// Authenticator inspects the credentials of a request and votes on it.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// AuthChain asks each authenticator in turn until one votes Yes or No.
// DefaultDecision decides requests every authenticator abstained on; Yes
// admits them as Anonymous.
type AuthChain struct {
	Authenticators  []Authenticator
	DefaultDecision AuthDecision
}

// Authenticate runs the chain against r.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, a := range c.Authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.DefaultDecision != Yes {
		return AuthResult{Decision: No, Err: ErrUnauthenticated}
	}
	return AuthResult{Decision: Yes, Identity: Anonymous()}
}

// BearerToken returns the token of a "Bearer" Authorization header. ok is
// false when the header is missing or uses another scheme.
func BearerToken(r *http.Request) (token string, ok bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Package noop provides a no-op authenticator that accepts all requests.
// It backs auth type "none" so that every caller runs as the anonymous
// identity in the default rate limit tier.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/llmhub/pkg/auth"
)

// Authenticator always returns Yes with the anonymous identity.
type Authenticator struct{}

var _ auth.Authenticator = (*Authenticator)(nil)

// Authenticate accepts the request.
func (a *Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.AuthResult {
	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: auth.Anonymous(),
	}
}

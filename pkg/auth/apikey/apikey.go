// Package apikey authenticates host API callers by static keys. A key is
// presented as a Bearer token or in the X-API-Key header and is matched
// against SHA-256 digests only.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/rhuss/llmhub/pkg/auth"
)

// HeaderName is the alternative header carrying a raw API key.
const HeaderName = "X-API-Key"

// RawKeyEntry pairs a plaintext key from configuration with the identity
// it authenticates as.
type RawKeyEntry struct {
	Key      string
	Identity auth.Identity
}

type entry struct {
	digest   [sha256.Size]byte
	identity auth.Identity
}

// Authenticator matches presented keys against a fixed set of digests.
type Authenticator struct {
	keys []entry
}

var _ auth.Authenticator = (*Authenticator)(nil)

// New hashes the configured keys. Entries with an empty key never match.
func New(raw []RawKeyEntry) *Authenticator {
	a := &Authenticator{keys: make([]entry, 0, len(raw))}
	for _, r := range raw {
		if r.Key != "" {
			a.keys = append(a.keys, entry{digest: sha256.Sum256([]byte(r.Key)), identity: r.Identity})
		}
	}
	return a
}

// Authenticate abstains when the request carries no key at all and votes
// No for a key that matches no entry.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	key, bearer := auth.BearerToken(r)
	if !bearer {
		if key = r.Header.Get(HeaderName); key == "" {
			return auth.AuthResult{Decision: auth.Abstain}
		}
	}

	digest := sha256.Sum256([]byte(key))
	for _, e := range a.keys {
		if key != "" && subtle.ConstantTimeCompare(digest[:], e.digest[:]) == 1 {
			id := e.identity
			return auth.AuthResult{Decision: auth.Yes, Identity: &id}
		}
	}
	return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
}

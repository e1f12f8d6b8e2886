package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/observability"
)

// DefaultBypassEndpoints lists the paths served without authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/metrics"}

// Middleware authenticates every request outside bypass through chain and
// stores the accepted identity in the request context. A non-nil limiter
// is consulted after authentication.
func Middleware(chain *AuthChain, limiter RateLimiter, bypass []string) func(http.Handler) http.Handler {
	open := make(map[string]struct{}, len(bypass))
	for _, p := range bypass {
		open[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := open[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			res := chain.Authenticate(r.Context(), r)
			id := res.Identity
			switch {
			case res.Decision != Yes || id == nil:
				slog.Warn("authentication failed", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", res.Err)
				reject(w, http.StatusUnauthorized, api.NewAuthenticationError("authentication required"))
				return
			case id.Subject == "":
				slog.Error("authenticator accepted a request without a subject", "path", r.URL.Path)
				reject(w, http.StatusInternalServerError, api.NewServerError("internal authentication error"))
				return
			}
			debug.Log("auth", "authenticated", "subject", id.Subject, "tier", id.Tier(), "path", r.URL.Path)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), id); err != nil {
					slog.Warn("rate limit exceeded", "subject", id.Subject, "tier", id.Tier())
					observability.RateLimitRejectedTotal.WithLabelValues(id.Tier()).Inc()
					reject(w, http.StatusTooManyRequests, api.NewTooManyRequestsError("rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), id)))
		})
	}
}

func reject(w http.ResponseWriter, status int, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

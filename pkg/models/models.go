package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/hub"
	"github.com/rhuss/llmhub/pkg/observability"
)

// FallbackSuffix is appended to the display name of every fallback option.
const FallbackSuffix = " (Fallback)"

// fallbackModels is returned in this exact order when discovery fails.
var fallbackModels = []string{
	"llama-3.3-70B-Instruct",
	"claude-3-5-sonnet",
	"gemini-2.5-flash",
}

// Option is a selectable model.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ErrInvalidListing is returned when the /models payload does not have the
// expected {"data": [{"id": ...}]} shape.
var ErrInvalidListing = errors.New("invalid model listing")

// Fallback returns the fixed option list used when discovery fails.
// The order is fixed, not alphabetical.
func Fallback() []Option {
	opts := make([]Option, len(fallbackModels))
	for i, id := range fallbackModels {
		opts[i] = Option{Name: id + FallbackSuffix, Value: id}
	}
	return opts
}

// Resolver lists models from the hub.
type Resolver struct {
	client hub.AuthenticatedClient
	locale language.Tag
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLocale sets the collation locale used to sort option names.
func WithLocale(tag language.Tag) ResolverOption {
	return func(r *Resolver) { r.locale = tag }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver that lists models through client.
func NewResolver(client hub.AuthenticatedClient, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client: client,
		locale: language.English,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch lists the hub's models, sorted by name. Any failure is returned.
func (r *Resolver) Fetch(ctx context.Context, creds *credentials.Credentials) ([]Option, error) {
	payload, err := r.client.Do(ctx, creds, hub.Request{
		Method:  http.MethodGet,
		URL:     "/models",
		BaseURL: creds.BaseURLOrDefault(),
	})
	if err != nil {
		return nil, err
	}

	opts, err := ParseListing(payload)
	if err != nil {
		return nil, err
	}

	SortOptions(opts, r.locale)
	debug.Log("models", "listing fetched", "count", len(opts))
	return opts, nil
}

// Resolve returns the hub's models, or Fallback() if they cannot be listed.
// It never fails.
func (r *Resolver) Resolve(ctx context.Context, creds *credentials.Credentials) []Option {
	opts, err := r.Fetch(ctx, creds)
	if err != nil {
		return r.fallback(err)
	}
	return opts
}

// ResolveWith resolves credentials through source first. A credential
// failure also yields the fallback list.
func (r *Resolver) ResolveWith(ctx context.Context, source credentials.Source, name string) []Option {
	creds, err := source.Credentials(ctx, name)
	if err != nil {
		return r.fallback(err)
	}
	return r.Resolve(ctx, creds)
}

func (r *Resolver) fallback(err error) []Option {
	reason := FallbackReason(err)
	r.logger.Warn("model listing failed, using fallback models", "reason", reason, "error", err)
	observability.ModelFallbacksTotal.WithLabelValues(reason).Inc()
	return Fallback()
}

// ParseListing converts a decoded /models payload into options. The
// payload must be an object whose "data" field is an array of objects with
// a non-empty string "id".
func ParseListing(payload any) ([]Option, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: payload is not an object", ErrInvalidListing)
	}

	data, ok := obj["data"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: data is missing or not an array", ErrInvalidListing)
	}

	opts := make([]Option, 0, len(data))
	for i, elem := range data {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: data[%d] is not an object", ErrInvalidListing, i)
		}
		id, ok := m["id"].(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: data[%d].id is not a non-empty string", ErrInvalidListing, i)
		}
		opts = append(opts, Option{Name: id, Value: id})
	}
	return opts, nil
}

// SortOptions sorts opts ascending by Name using the collation rules of
// locale. Equal names keep their listing order.
func SortOptions(opts []Option, locale language.Tag) {
	// A Collator is not safe for concurrent use, so build one per call.
	c := collate.New(locale)
	sort.SliceStable(opts, func(i, j int) bool {
		return c.CompareString(opts[i].Name, opts[j].Name) < 0
	})
}

// FallbackReason classifies a discovery failure for logs and metrics.
func FallbackReason(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, credentials.ErrNotFound):
		return "credentials"
	case errors.Is(err, ErrInvalidListing):
		return "invalid_listing"
	case errors.As(err, &apiErr):
		if apiErr.Status != 0 {
			return "http_status"
		}
		return "request_failed"
	default:
		return "unknown"
	}
}

// Package credentials holds the connection settings used to reach the LLM
// Hub and the sources that resolve them by name.
//
// The core never caches or persists a resolved credential set: callers ask
// the Source once per option-load or execute call and drop the value when
// the call returns.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DefaultBaseURL is the production LLM Hub endpoint.
const DefaultBaseURL = "https://llm-server.llmhub.t-systems.net/v2"

// DefaultName is the credential type name the chat node asks for.
const DefaultName = "telekomLlmApi"

// ErrNotFound is returned when no credential set is registered under a name.
var ErrNotFound = errors.New("credentials not found")

// Credentials is the resolved connection configuration for the hub.
// APIKey and Headers are authentication material; only the authenticated
// client interprets them.
type Credentials struct {
	BaseURL string            `json:"baseUrl,omitempty" yaml:"base_url"`
	APIKey  string            `json:"-" yaml:"api_key"`
	Headers map[string]string `json:"-" yaml:"headers"`
}

// BaseURLOrDefault returns the configured base URL, or DefaultBaseURL when
// none is set.
func (c *Credentials) BaseURLOrDefault() string {
	if c == nil || strings.TrimSpace(c.BaseURL) == "" {
		return DefaultBaseURL
	}
	return c.BaseURL
}

// Source resolves credential sets by name.
type Source interface {
	Credentials(ctx context.Context, name string) (*Credentials, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, name string) (*Credentials, error)

// Credentials calls f(ctx, name).
func (f SourceFunc) Credentials(ctx context.Context, name string) (*Credentials, error) {
	return f(ctx, name)
}

// Store is an in-memory Source keyed by credential name. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Credentials
}

// Ensure Store implements Source at compile time.
var _ Source = (*Store)(nil)

// NewStore creates a Store from the given named entries.
func NewStore(entries map[string]Credentials) *Store {
	s := &Store{entries: make(map[string]Credentials, len(entries))}
	for name, c := range entries {
		s.entries[name] = c
	}
	return s
}

// Put registers or replaces the credential set stored under name.
func (s *Store) Put(name string, c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = c
}

// Credentials returns a copy of the credential set registered under name.
// An empty name selects DefaultName.
func (s *Store) Credentials(_ context.Context, name string) (*Credentials, error) {
	if name == "" {
		name = DefaultName
	}

	s.mu.RLock()
	c, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	// Copy so callers cannot mutate the stored headers.
	if c.Headers != nil {
		headers := make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		c.Headers = headers
	}
	return &c, nil
}

// Names returns the registered credential names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Package memory provides an in-memory implementation of
// transport.ExecutionStore for tests and single-instance deployments.
// Records are lost when the process restarts. An optional size limit
// evicts the oldest record first.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/rhuss/llmhub/pkg/storage"
	"github.com/rhuss/llmhub/pkg/transport"
)

// entry holds a stored record and its metadata.
type entry struct {
	exec  *storage.Execution
	owner string
	seq   uint64
	elem  *list.Element // position in eviction order
}

// Store is an in-memory ExecutionStore with optional eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   *list.List // front = newest, back = oldest
	maxSize int        // 0 = unlimited
	seq     uint64
}

var _ transport.ExecutionStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the oldest record is evicted when the
// limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// SaveExecution stores a copy of exec.
func (s *Store) SaveExecution(ctx context.Context, exec *storage.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[exec.ID]; exists {
		return storage.ErrConflict
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	copied := *exec
	s.seq++
	s.entries[exec.ID] = &entry{
		exec:  &copied,
		owner: storage.OwnerFromContext(ctx),
		seq:   s.seq,
		elem:  s.order.PushFront(exec.ID),
	}
	return nil
}

// GetExecution retrieves a record by ID, scoped by owner when one is
// present in the context.
func (s *Store) GetExecution(ctx context.Context, id string) (*storage.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lookup(ctx, id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *e.exec
	return &copied, nil
}

// DeleteExecution removes a record.
func (s *Store) DeleteExecution(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(ctx, id)
	if !ok {
		return storage.ErrNotFound
	}
	s.order.Remove(e.elem)
	delete(s.entries, id)
	return nil
}

// ListExecutions returns a page of records, newest first unless
// opts.Order is "asc".
func (s *Store) ListExecutions(ctx context.Context, opts transport.ListOptions) (*transport.ExecutionList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner := storage.OwnerFromContext(ctx)

	var matches []*entry
	for _, e := range s.entries {
		if owner != "" && e.owner != owner {
			continue
		}
		if opts.Status != "" && e.exec.Status != opts.Status {
			continue
		}
		matches = append(matches, e)
	}

	asc := opts.Order == "asc"
	sort.Slice(matches, func(i, j int) bool {
		if asc {
			return matches[i].seq < matches[j].seq
		}
		return matches[i].seq > matches[j].seq
	})

	if opts.After != "" {
		idx := -1
		for i, e := range matches {
			if e.exec.ID == opts.After {
				idx = i
				break
			}
		}
		if idx >= 0 {
			matches = matches[idx+1:]
		} else {
			matches = nil
		}
	}

	limit := opts.EffectiveLimit()
	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}

	result := &transport.ExecutionList{
		Object:  "list",
		Data:    make([]*storage.Execution, 0, len(matches)),
		HasMore: hasMore,
	}
	for _, e := range matches {
		copied := *e.exec
		result.Data = append(result.Data, &copied)
	}
	if len(result.Data) > 0 {
		result.FirstID = result.Data[0].ID
		result.LastID = result.Data[len(result.Data)-1].ID
	}
	return result, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// lookup finds a record visible to the owner in ctx.
// Must be called with s.mu held.
func (s *Store) lookup(ctx context.Context, id string) (*entry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if owner := storage.OwnerFromContext(ctx); owner != "" && e.owner != owner {
		return nil, false
	}
	return e, true
}

// evictOldest removes the oldest record.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.order.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.order.Remove(back)
	delete(s.entries, id)
}

package transport

import (
	"context"
	"sync"
)

// InFlightRegistry maps the IDs of running executions to their cancel
// functions so that DELETE /v1/executions/{id} can abort them. Each entry
// belongs to the subject that started it. It is safe for concurrent use.
type InFlightRegistry struct {
	mu      sync.Mutex
	running map[string]inflight
}

type inflight struct {
	owner  string
	cancel context.CancelFunc
}

// NewInFlightRegistry returns an empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{running: make(map[string]inflight)}
}

// Register records a running execution started by owner. It reports false
// and keeps the existing entry when id is already running.
func (r *InFlightRegistry) Register(id, owner string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.running[id]; taken {
		return false
	}
	r.running[id] = inflight{owner: owner, cancel: cancel}
	return true
}

// Cancel aborts and forgets the execution when owner started it. It
// reports whether such an execution was running; executions of other
// owners are left untouched.
func (r *InFlightRegistry) Cancel(id, owner string) bool {
	r.mu.Lock()
	e, ok := r.running[id]
	if ok && e.owner == owner {
		delete(r.running, id)
	}
	r.mu.Unlock()

	if !ok || e.owner != owner {
		return false
	}
	e.cancel()
	return true
}

// Remove forgets a finished execution without cancelling it.
func (r *InFlightRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

// Len returns the number of running executions.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether an identity may issue another request.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// InProcessLimiter counts requests per subject in one-minute fixed windows.
// The budget of a window comes from the identity's tier.
type InProcessLimiter struct {
	rpm        map[string]int
	defaultRPM int
	now        func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	used  int
}

// NewInProcessLimiter returns a limiter allowing rpm[tier] requests per
// minute. Tiers missing from rpm get defaultRPM. A budget of zero or less
// disables limiting for that tier.
func NewInProcessLimiter(rpm map[string]int, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		rpm:        rpm,
		defaultRPM: defaultRPM,
		now:        time.Now,
		windows:    make(map[string]*window),
	}
}

func (l *InProcessLimiter) budget(tier string) int {
	if n, ok := l.rpm[tier]; ok {
		return n
	}
	return l.defaultRPM
}

// Allow returns ErrTooManyRequests once identity has used up the budget of
// its current window.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := identity.Tier()
	limit := l.budget(tier)
	if limit <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := identity.Subject + "/" + tier
	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= time.Minute {
		l.windows[key] = &window{start: now, used: 1}
		return nil
	}
	if w.used >= limit {
		return ErrTooManyRequests
	}
	w.used++
	return nil
}

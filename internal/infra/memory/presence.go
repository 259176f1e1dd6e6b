package memory

import (
	"context"
	"sync"
	"time"
)

// Presence is an in-memory visitor presence tracker. Entries not touched within ttl
// stop counting as active.
type Presence struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	visitors map[string]time.Time
}

func NewPresence(ttl time.Duration) *Presence {
	return NewPresenceWithClock(ttl, time.Now)
}

// NewPresenceWithClock is test-only for deterministic expiry.
func NewPresenceWithClock(ttl time.Duration, clock func() time.Time) *Presence {
	return &Presence{ttl: ttl, clock: clock, visitors: make(map[string]time.Time)}
}

func (p *Presence) Touch(_ context.Context, visitorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visitors[visitorID] = p.clock().Add(p.ttl)
	return nil
}

func (p *Presence) Leave(_ context.Context, visitorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.visitors, visitorID)
	return nil
}

// Active prunes expired visitors and returns how many remain.
func (p *Presence) Active(_ context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock()
	for id, expiresAt := range p.visitors {
		if !expiresAt.After(now) {
			delete(p.visitors, id)
		}
	}
	return int64(len(p.visitors)), nil
}

// Package rate enforces a minimum spacing between provider requests.
//
// The gate is a single shared object per run: every request path calls
// Wait before touching the network, so the spacing holds globally even if
// work items are ever processed by multiple workers.
package rate

import (
	"context"
	"sync"
	"time"
)

// Gate spaces out requests by a fixed minimum interval.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewGate returns a gate enforcing the given minimum interval between
// consecutive Wait returns. A non-positive interval disables the gate.
func NewGate(interval time.Duration) *Gate {
	return &Gate{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous Wait returned, or until ctx is canceled.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.interval <= 0 {
		return nil
	}

	g.mu.Lock()
	now := g.now()
	wait := g.interval - now.Sub(g.last)
	if wait < 0 {
		wait = 0
	}
	// Reserve the slot before sleeping so concurrent callers queue up
	// behind each other instead of all waking at once.
	g.last = now.Add(wait)
	g.mu.Unlock()

	if wait == 0 {
		return nil
	}
	return g.sleep(ctx, wait)
}

// sleepCtx sleeps for d, returning early with ctx.Err() on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

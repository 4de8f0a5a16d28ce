package footballdata

import (
	"sync"
	"time"
)

// callBudget enforces a sliding-window cap on upstream calls. The
// free tier allows ten calls per minute; the engine keeps a couple in
// reserve for interactive traffic, so the default budget is eight.
type callBudget struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time
	now    func() time.Time
}

func newCallBudget(limit int, window time.Duration) *callBudget {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &callBudget{
		limit:  limit,
		window: window,
		calls:  make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

// TryReserve consumes one slot if the window has room. On refusal it
// returns how long until the oldest call slides out of the window.
func (b *callBudget) TryReserve() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.evict(now)

	if len(b.calls) < b.limit {
		b.calls = append(b.calls, now)
		return true, 0
	}

	wait := b.calls[0].Add(b.window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return false, wait
}

// Penalize burns the whole window, used after an upstream 429 so the
// next dispatch waits out the provider's own counter.
func (b *callBudget) Penalize(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.evict(now)

	if d <= 0 || d > b.window {
		d = b.window
	}
	// backdate a full window of synthetic calls ending at now+d-window
	anchor := now.Add(d - b.window)
	b.calls = b.calls[:0]
	for i := 0; i < b.limit; i++ {
		b.calls = append(b.calls, anchor)
	}
}

// InFlightWindow reports how many slots the current window holds.
func (b *callBudget) InFlightWindow() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evict(b.now())
	return len(b.calls)
}

func (b *callBudget) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	idx := 0
	for idx < len(b.calls) && !b.calls[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		b.calls = append(b.calls[:0], b.calls[idx:]...)
	}
}

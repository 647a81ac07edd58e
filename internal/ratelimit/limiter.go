package ratelimit

import (
	"sync"
	"time"
)

// entry tracks one identifier's current window
type entry struct {
	count   int
	resetAt time.Time
}

// Result is the outcome of a single Check call
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter is a sliding-window request throttle. Each identifier gets a
// quota of max requests; the window opens on the identifier's first
// request and resets a fixed duration later. State is process-local:
// a multi-instance deployment multiplies the effective ceiling by the
// instance count.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	max     int
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// New creates a limiter allowing max requests per identifier per window
func New(window time.Duration, max int) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		max:     max,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Max returns the configured per-window ceiling
func (l *Limiter) Max() int {
	return l.max
}

// Check records a request for the identifier and reports whether it is
// within quota. It never fails: the caller always gets a usable result.
func (l *Limiter) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[identifier]
	if !ok || !now.Before(e.resetAt) {
		// First request, or the previous window elapsed: open a fresh one
		e = &entry{count: 1, resetAt: now.Add(l.window)}
		l.entries[identifier] = e
		return Result{
			Allowed:   true,
			Remaining: l.max - 1,
			ResetAt:   e.resetAt,
		}
	}

	if e.count >= l.max {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    e.resetAt,
			RetryAfter: e.resetAt.Sub(now),
		}
	}

	e.count++
	return Result{
		Allowed:   true,
		Remaining: l.max - e.count,
		ResetAt:   e.resetAt,
	}
}

// Reset drops the identifier's current window
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, identifier)
}

// ClearAll drops every tracked window
func (l *Limiter) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*entry)
}

// StartCleanup launches a background sweeper that evicts expired
// windows, bounding memory growth under identifier churn. Expired
// entries are still treated as expired by Check before the sweep runs;
// the sweeper is housekeeping, not correctness.
func (l *Limiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-l.done:
				return
			}
		}
	}()
}

// Stop terminates the background sweeper, if running
func (l *Limiter) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, id)
		}
	}
}

// size reports the number of tracked identifiers (test hook)
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

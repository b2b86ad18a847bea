package ingest

import (
	"sync"
	"time"
)

// WindowLimiter is a fixed-window event counter per product key. The window
// opens at the first event after the previous window lapsed; increments are
// atomic under the mutex so concurrent ingestion never undercounts.
//
// State is process-local: adequate for one instance, must become a shared
// counter for a horizontally scaled deployment.
type WindowLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	counts map[string]*windowCount
	nowF   func() time.Time
}

type windowCount struct {
	start time.Time
	n     int
}

// NewWindowLimiter returns a limiter allowing max events per product per window.
func NewWindowLimiter(window time.Duration, max int) *WindowLimiter {
	return &WindowLimiter{
		window: window,
		max:    max,
		counts: make(map[string]*windowCount),
		nowF:   time.Now,
	}
}

// Allow records one event for product and reports whether it fits in the
// current window. The first event past the cap and every later one in the
// same window return false; the next window starts fresh.
func (l *WindowLimiter) Allow(product string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowF()
	c, ok := l.counts[product]
	if !ok || now.Sub(c.start) >= l.window {
		c = &windowCount{start: now}
		l.counts[product] = c
	}
	c.n++
	return c.n <= l.max
}

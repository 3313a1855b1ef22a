// Package ratelimit implements a fixed-window per-client request counter.
//
// The limiter is an in-process soft protection, not a security boundary:
// state lives in a mutex-guarded map, is lost on restart, and is purged
// lazily plus on a scheduled sweep.
package ratelimit

import (
	"sync"
	"time"
)

// Default window parameters.
const (
	DefaultWindow = 60 * time.Second
)

type entry struct {
	count   int
	resetAt time.Time
}

// Result reports the outcome of a single rate-limit check.
type Result struct {
	Allowed           bool
	Limit             int
	Remaining         int
	ResetAt           time.Time
	RetryAfterSeconds int
}

// Stats is a point-in-time snapshot of limiter state for /metrics.
type Stats struct {
	ActiveClients        int           `json:"activeClients"`
	MaxRequestsPerWindow int           `json:"maxRequestsPerWindow"`
	Window               time.Duration `json:"windowMs"`
}

// Limiter counts requests per client key in fixed wall-clock windows.
type Limiter struct {
	window time.Duration
	max    int

	mu      sync.Mutex
	clients map[string]*entry
	now     func() time.Time
}

// New creates a Limiter. A non-positive window falls back to
// DefaultWindow; max must be positive.
func New(window time.Duration, max int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		window:  window,
		max:     max,
		clients: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check records one request for key and reports whether it is allowed.
// A fresh or expired window resets the count to 1 and always allows.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.clients[key]
	if !ok || !e.resetAt.After(now) {
		e = &entry{count: 1, resetAt: now.Add(l.window)}
		l.clients[key] = e
		return Result{
			Allowed:   true,
			Limit:     l.max,
			Remaining: l.max - 1,
			ResetAt:   e.resetAt,
		}
	}

	e.count++
	if e.count > l.max {
		retry := int((e.resetAt.Sub(now) + time.Second - 1) / time.Second)
		if retry < 1 {
			retry = 1
		}
		return Result{
			Allowed:           false,
			Limit:             l.max,
			Remaining:         0,
			ResetAt:           e.resetAt,
			RetryAfterSeconds: retry,
		}
	}

	remaining := l.max - e.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   true,
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   e.resetAt,
	}
}

// Purge removes entries whose window has expired and returns how many
// were dropped. Called opportunistically and from the maintenance cron.
func (l *Limiter) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for key, e := range l.clients {
		if !e.resetAt.After(now) {
			delete(l.clients, key)
			dropped++
		}
	}
	return dropped
}

// Stats returns a snapshot of limiter state.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		ActiveClients:        len(l.clients),
		MaxRequestsPerWindow: l.max,
		Window:               l.window,
	}
}

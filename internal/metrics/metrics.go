// Package metrics tracks in-process request counters for the
// operational endpoints.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the collected counters.
type Snapshot struct {
	UptimeSeconds     int64   `json:"uptimeSeconds"`
	TotalRequests     int64   `json:"totalRequests"`
	TotalErrors       int64   `json:"totalErrors"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	RequestsPerMinute float64 `json:"requestsPerMinute"`
}

// Collector accumulates request counts and latencies. Safe for
// concurrent use.
type Collector struct {
	mu sync.Mutex

	start        time.Time
	requests     int64
	errors       int64
	totalLatency time.Duration
}

// NewCollector creates a Collector with the uptime clock started now.
func NewCollector() *Collector {
	return &Collector{start: time.Now()}
}

// Observe records one finished request. isError covers any response with
// status 400 or above.
func (c *Collector) Observe(latency time.Duration, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests++
	c.totalLatency += latency
	if isError {
		c.errors++
	}
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	uptime := time.Since(c.start)
	snap := Snapshot{
		UptimeSeconds: int64(uptime.Seconds()),
		TotalRequests: c.requests,
		TotalErrors:   c.errors,
	}
	if c.requests > 0 {
		snap.AvgResponseTimeMs = float64(c.totalLatency.Milliseconds()) / float64(c.requests)
	}
	if minutes := uptime.Minutes(); minutes > 0 {
		snap.RequestsPerMinute = float64(c.requests) / minutes
	}
	return snap
}

package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestObserveAccumulates(t *testing.T) {
	c := NewCollector()

	c.Observe(100*time.Millisecond, false)
	c.Observe(300*time.Millisecond, true)

	snap := c.Snapshot()
	if snap.TotalRequests != 2 {
		t.Errorf("expected 2 requests, got %d", snap.TotalRequests)
	}
	if snap.TotalErrors != 1 {
		t.Errorf("expected 1 error, got %d", snap.TotalErrors)
	}
	if snap.AvgResponseTimeMs != 200 {
		t.Errorf("expected avg 200ms, got %v", snap.AvgResponseTimeMs)
	}
}

func TestSnapshotEmptyCollector(t *testing.T) {
	c := NewCollector()

	snap := c.Snapshot()
	if snap.TotalRequests != 0 || snap.TotalErrors != 0 {
		t.Errorf("expected zero counters, got %+v", snap)
	}
	if snap.AvgResponseTimeMs != 0 {
		t.Errorf("expected zero average without requests, got %v", snap.AvgResponseTimeMs)
	}
}

func TestObserveConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Observe(time.Millisecond, j%10 == 0)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.TotalRequests != 1000 {
		t.Errorf("expected 1000 requests, got %d", snap.TotalRequests)
	}
	if snap.TotalErrors != 100 {
		t.Errorf("expected 100 errors, got %d", snap.TotalErrors)
	}
}

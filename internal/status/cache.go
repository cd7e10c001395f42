// Package status provides step-progress propagation for pipeline runs: an
// in-memory cache for same-instance reads, a broadcaster that fans transitions
// out to the cache and the durable store, live run tracking, and a resolver
// that reconstructs run status from whichever source is available.
package status

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonathan/landing-agent/internal/types"
)

// DefaultRetention is how long an idle run's cached records are kept.
const DefaultRetention = time.Hour

// DefaultSweepInterval is how often the background sweeper runs.
const DefaultSweepInterval = 10 * time.Minute

// Cache is a process-local store of step records keyed by run ID.
// Append replaces the record for a step identifier if one exists.
type Cache interface {
	Append(runID string, rec types.StepRecord)
	Get(runID string) []types.StepRecord
	Sweep(maxAge time.Duration) int
}

type cacheEntry struct {
	records   []types.StepRecord
	updatedAt time.Time
}

// MemoryCache is the default Cache implementation. Writes for a given run
// come from that run's orchestrator only, so contention is across runs.
type MemoryCache struct {
	mu   sync.RWMutex
	runs map[string]*cacheEntry
	now  func() time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		runs: make(map[string]*cacheEntry),
		now:  time.Now,
	}
}

// Append records a step transition, replacing any existing record with the
// same step identifier.
func (c *MemoryCache) Append(runID string, rec types.StepRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.runs[runID]
	if !ok {
		entry = &cacheEntry{}
		c.runs[runID] = entry
	}

	replaced := false
	for i := range entry.records {
		if entry.records[i].StepID == rec.StepID {
			entry.records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		entry.records = append(entry.records, rec)
	}
	entry.updatedAt = c.now()
}

// Get returns a copy of the current records for a run, in insertion order.
// Returns nil when the run is not cached.
func (c *MemoryCache) Get(runID string) []types.StepRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.runs[runID]
	if !ok {
		return nil
	}
	out := make([]types.StepRecord, len(entry.records))
	copy(out, entry.records)
	return out
}

// Sweep evicts runs whose most recent update is older than maxAge.
// Returns the number of evicted runs.
func (c *MemoryCache) Sweep(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for runID, entry := range c.runs {
		if entry.updatedAt.Before(cutoff) {
			delete(c.runs, runID)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of cached runs.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.runs)
}

// StartSweeper runs a periodic eviction loop until ctx is cancelled.
func StartSweeper(ctx context.Context, cache Cache, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := cache.Sweep(maxAge); n > 0 {
					log.Printf("[status] swept %d idle run(s) from cache", n)
				}
			}
		}
	}()
}

package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/landing-agent/internal/types"
)

func record(stepID string, st types.StepStatus) types.StepRecord {
	return types.StepRecord{
		StepID:         stepID,
		Label:          stepID,
		Status:         st,
		TransitionedAt: time.Now(),
	}
}

func TestMemoryCache_AppendAndGet(t *testing.T) {
	cache := NewMemoryCache()

	cache.Append("run-1", record("scrape", types.StepPending))
	cache.Append("run-1", record("search", types.StepPending))

	records := cache.Get("run-1")
	require.Len(t, records, 2)
	assert.Equal(t, "scrape", records[0].StepID)
	assert.Equal(t, "search", records[1].StepID)
}

func TestMemoryCache_AppendReplacesByStepID(t *testing.T) {
	cache := NewMemoryCache()

	cache.Append("run-1", record("scrape", types.StepPending))
	cache.Append("run-1", record("scrape", types.StepRunning))
	cache.Append("run-1", record("scrape", types.StepSuccess))

	records := cache.Get("run-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.StepSuccess, records[0].Status)
}

func TestMemoryCache_GetUnknownRun(t *testing.T) {
	cache := NewMemoryCache()
	assert.Nil(t, cache.Get("missing"))
}

func TestMemoryCache_GetReturnsCopy(t *testing.T) {
	cache := NewMemoryCache()
	cache.Append("run-1", record("scrape", types.StepRunning))

	records := cache.Get("run-1")
	records[0].Status = types.StepError

	fresh := cache.Get("run-1")
	assert.Equal(t, types.StepRunning, fresh[0].Status)
}

func TestMemoryCache_RunsAreIsolated(t *testing.T) {
	cache := NewMemoryCache()
	cache.Append("run-1", record("scrape", types.StepRunning))
	cache.Append("run-2", record("scrape", types.StepSuccess))

	assert.Equal(t, types.StepRunning, cache.Get("run-1")[0].Status)
	assert.Equal(t, types.StepSuccess, cache.Get("run-2")[0].Status)
}

func TestMemoryCache_SweepEvictsIdleRuns(t *testing.T) {
	cache := NewMemoryCache()

	now := time.Now()
	cache.now = func() time.Time { return now.Add(-2 * time.Hour) }
	cache.Append("stale", record("scrape", types.StepSuccess))

	cache.now = func() time.Time { return now }
	cache.Append("fresh", record("scrape", types.StepRunning))

	evicted := cache.Sweep(time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Nil(t, cache.Get("stale"))
	assert.NotNil(t, cache.Get("fresh"))
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_SweepKeepsRecentlyUpdated(t *testing.T) {
	cache := NewMemoryCache()
	cache.Append("run-1", record("scrape", types.StepRunning))

	assert.Equal(t, 0, cache.Sweep(time.Hour))
	assert.NotNil(t, cache.Get("run-1"))
}

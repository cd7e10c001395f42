package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/landing-agent/internal/types"
)

// DefaultNotFoundAfter is how long a run with no data anywhere is still
// reported as running before the resolver declares it not found.
const DefaultNotFoundAfter = 90 * time.Second

// Source tags where a resolution's data came from.
type Source string

const (
	// SourceLive means this process holds the run's live handle.
	SourceLive Source = "live"
	// SourceStore means status was derived from durable step records.
	SourceStore Source = "store"
	// SourceUnknown means no data exists yet anywhere.
	SourceUnknown Source = "unknown"
)

// Resolution is the answer to "what is the status of run X".
type Resolution struct {
	RunID    string
	Status   types.RunStatus
	Steps    []types.StepRecord
	Result   *types.LandingPage
	Error    string
	Source   Source
	NotFound bool
}

// StoreReader reads durable step records. *db.DB satisfies it.
type StoreReader interface {
	ListStepStatuses(ctx context.Context, runID string) ([]types.StepRecord, error)
}

// ResultReader loads the persisted result artifact. *db.DB satisfies it.
type ResultReader interface {
	GetLandingPage(ctx context.Context, runID string) (*types.LandingPage, error)
}

// Resolver reconstructs run status from whichever source is authoritative:
// live handle first, then durable step records, else assume the run is still
// initializing on another instance.
type Resolver struct {
	tracker    *Tracker
	cache      Cache
	store      StoreReader
	results    ResultReader
	totalSteps int

	notFoundAfter time.Duration

	mu           sync.Mutex
	firstUnknown map[string]time.Time
	now          func() time.Time
}

// NewResolver creates a resolver. totalSteps must be the pipeline
// definition's length so the "all steps known" check cannot drift.
func NewResolver(tracker *Tracker, cache Cache, store StoreReader, results ResultReader, totalSteps int) *Resolver {
	return &Resolver{
		tracker:       tracker,
		cache:         cache,
		store:         store,
		results:       results,
		totalSteps:    totalSteps,
		notFoundAfter: DefaultNotFoundAfter,
		firstUnknown:  make(map[string]time.Time),
		now:           time.Now,
	}
}

// WithNotFoundAfter overrides the grace window before declaring not found.
func (r *Resolver) WithNotFoundAfter(d time.Duration) *Resolver {
	r.notFoundAfter = d
	return r
}

// Resolve answers the status query for a run. The returned Resolution is
// always well-formed; the error return covers store access failures only.
func (r *Resolver) Resolve(ctx context.Context, runID string) (*Resolution, error) {
	// Live handle wins for terminal status and result.
	if handle, ok := r.tracker.Get(runID); ok {
		st, errMsg, result := handle.Snapshot()
		steps := r.cache.Get(runID)
		if len(steps) == 0 && r.store != nil {
			// The live handle has no per-step granularity of its own.
			var err error
			steps, err = r.store.ListStepStatuses(ctx, runID)
			if err != nil {
				return nil, fmt.Errorf("failed to list step statuses: %w", err)
			}
		}
		r.forget(runID)
		return &Resolution{
			RunID:  runID,
			Status: st,
			Steps:  steps,
			Result: result,
			Error:  errMsg,
			Source: SourceLive,
		}, nil
	}

	// No live handle: same-instance cache, then the durable store.
	steps := r.cache.Get(runID)
	if len(steps) == 0 && r.store != nil {
		var err error
		steps, err = r.store.ListStepStatuses(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to list step statuses: %w", err)
		}
	}

	if len(steps) > 0 {
		r.forget(runID)
		res := &Resolution{
			RunID:  runID,
			Status: deriveStatus(steps, r.totalSteps),
			Steps:  steps,
			Source: SourceStore,
		}
		for _, rec := range steps {
			if rec.Status == types.StepError {
				res.Error = rec.Error
				break
			}
		}
		if res.Status == types.RunCompleted && r.results != nil {
			result, err := r.results.GetLandingPage(ctx, runID)
			if err == nil {
				res.Result = result
			}
		}
		return res, nil
	}

	// Zero data anywhere. Assume the run is initializing on another
	// instance until the grace window elapses.
	if r.withinGrace(runID) {
		return &Resolution{
			RunID:  runID,
			Status: types.RunRunning,
			Steps:  []types.StepRecord{},
			Source: SourceUnknown,
		}, nil
	}

	return &Resolution{
		RunID:    runID,
		Status:   types.RunFailed,
		Steps:    []types.StepRecord{},
		Source:   SourceUnknown,
		NotFound: true,
	}, nil
}

// deriveStatus aggregates durable step records into a run status: failed if
// any step errored, completed when every step in the definition is terminal,
// otherwise running.
func deriveStatus(steps []types.StepRecord, totalSteps int) types.RunStatus {
	terminal := 0
	for _, rec := range steps {
		if rec.Status == types.StepError {
			return types.RunFailed
		}
		if rec.Status.Terminal() {
			terminal++
		}
	}
	if terminal == len(steps) && len(steps) == totalSteps {
		return types.RunCompleted
	}
	return types.RunRunning
}

// withinGrace reports whether runID's first zero-data observation is still
// within the not-found grace window.
func (r *Resolver) withinGrace(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if first, ok := r.firstUnknown[runID]; ok {
		return now.Sub(first) < r.notFoundAfter
	}

	// Each new observation sweeps long-expired ones, so polling distinct
	// unknown run IDs cannot grow the map without bound. An ID idle past
	// twice the window restarts its grace on the next poll.
	cutoff := now.Add(-2 * r.notFoundAfter)
	for id, first := range r.firstUnknown {
		if first.Before(cutoff) {
			delete(r.firstUnknown, id)
		}
	}

	r.firstUnknown[runID] = now
	return true
}

func (r *Resolver) forget(runID string) {
	r.mu.Lock()
	delete(r.firstUnknown, runID)
	r.mu.Unlock()
}

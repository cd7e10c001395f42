package status

import (
	"context"
	"log"

	"github.com/jonathan/landing-agent/internal/types"
)

// Store is the durable side of step-status persistence.
// *db.DB satisfies it.
type Store interface {
	UpsertStepStatus(ctx context.Context, runID string, rec types.StepRecord) error
}

// PushFunc receives every published transition, used to feed SSE streams.
type PushFunc func(runID string, rec types.StepRecord)

// Broadcaster fans a step transition out to the in-memory cache and the
// durable store. Store failures are logged and swallowed: a run's progress
// is never blocked by telemetry.
type Broadcaster struct {
	cache Cache
	store Store
	push  PushFunc
}

// NewBroadcaster creates a broadcaster writing to cache and store.
// store may be nil (cache-only mode, used by the one-off CLI).
func NewBroadcaster(cache Cache, store Store) *Broadcaster {
	return &Broadcaster{cache: cache, store: store}
}

// WithPush registers a callback invoked after each publish.
func (b *Broadcaster) WithPush(fn PushFunc) *Broadcaster {
	b.push = fn
	return b
}

// Publish records a step transition in the cache and the durable store.
// The two writes are independent; neither failure affects the other.
func (b *Broadcaster) Publish(ctx context.Context, runID string, rec types.StepRecord) {
	b.cache.Append(runID, rec)

	if b.store != nil {
		if err := b.store.UpsertStepStatus(ctx, runID, rec); err != nil {
			log.Printf("[status] failed to persist step %s/%s: %v", runID, rec.StepID, err)
		}
	}

	if b.push != nil {
		b.push(runID, rec)
	}
}

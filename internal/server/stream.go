package server

import (
	"sync"

	"github.com/jonathan/landing-agent/internal/types"
)

// streamHub fans step transitions out to per-run SSE subscribers. The
// broadcaster's push callback feeds it; handlers subscribe before starting
// a run so no transition is missed.
type streamHub struct {
	mu   sync.Mutex
	subs map[string][]chan types.StepRecord
}

func newStreamHub() *streamHub {
	return &streamHub{subs: make(map[string][]chan types.StepRecord)}
}

// Publish delivers a transition to the run's subscribers without blocking:
// a subscriber that cannot keep up drops events rather than stalling the
// pipeline.
func (h *streamHub) Publish(runID string, rec types.StepRecord) {
	h.mu.Lock()
	channels := h.subs[runID]
	h.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Subscribe registers a buffered channel for the run's transitions.
func (h *streamHub) Subscribe(runID string) chan types.StepRecord {
	ch := make(chan types.StepRecord, 64)
	h.mu.Lock()
	h.subs[runID] = append(h.subs[runID], ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel. The channel is not closed here; the
// subscriber owns its read loop and exits on run completion.
func (h *streamHub) Unsubscribe(runID string, ch chan types.StepRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channels := h.subs[runID]
	for i, c := range channels {
		if c == ch {
			h.subs[runID] = append(channels[:i], channels[i+1:]...)
			break
		}
	}
	if len(h.subs[runID]) == 0 {
		delete(h.subs, runID)
	}
}

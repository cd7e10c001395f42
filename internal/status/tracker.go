package status

import (
	"sync"
	"time"

	"github.com/jonathan/landing-agent/internal/types"
)

// Handle is the live view of a run started in this process. The orchestrator
// owns it for the duration of execution; status queries read snapshots.
type Handle struct {
	RunID     string
	StartedAt time.Time

	mu     sync.Mutex
	status types.RunStatus
	errMsg string
	result *types.LandingPage
}

// Snapshot returns the handle's current terminal fields.
func (h *Handle) Snapshot() (types.RunStatus, string, *types.LandingPage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.errMsg, h.result
}

func (h *Handle) complete(result *types.LandingPage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = types.RunCompleted
	h.result = result
}

func (h *Handle) fail(errMsg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = types.RunFailed
	h.errMsg = errMsg
}

// Tracker holds live handles for runs started in this process instance.
type Tracker struct {
	mu   sync.RWMutex
	runs map[string]*Handle
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*Handle)}
}

// Start registers a new live run and returns its handle.
func (t *Tracker) Start(runID string) *Handle {
	h := &Handle{
		RunID:     runID,
		StartedAt: time.Now(),
		status:    types.RunRunning,
	}
	t.mu.Lock()
	t.runs[runID] = h
	t.mu.Unlock()
	return h
}

// Complete marks a live run as completed with its result artifact.
func (t *Tracker) Complete(runID string, result *types.LandingPage) {
	if h, ok := t.Get(runID); ok {
		h.complete(result)
	}
}

// Fail marks a live run as failed with the terminal error message.
func (t *Tracker) Fail(runID string, errMsg string) {
	if h, ok := t.Get(runID); ok {
		h.fail(errMsg)
	}
}

// Get returns the live handle for a run, if this process started it.
func (t *Tracker) Get(runID string) (*Handle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.runs[runID]
	return h, ok
}

// Sweep drops handles for terminal runs older than maxAge.
func (t *Tracker) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	dropped := 0
	for runID, h := range t.runs {
		st, _, _ := h.Snapshot()
		if st != types.RunRunning && h.StartedAt.Before(cutoff) {
			delete(t.runs, runID)
			dropped++
		}
	}
	return dropped
}

// Package types provides type definitions for structured data used throughout the landing-agent system.
package types

import (
	"time"
)

// StepStatus is the lifecycle state of a single pipeline step.
type StepStatus string

// Step status values. Transitions are monotonic:
// pending -> running -> (success | error).
const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
)

// Terminal reports whether the status is a terminal state.
func (s StepStatus) Terminal() bool {
	return s == StepSuccess || s == StepError
}

// StepRecord is the current status snapshot for one step within one run.
// For a given (run, step) pair there is at most one current record;
// updates replace rather than append.
type StepRecord struct {
	StepID         string         `json:"step_id"`
	Label          string         `json:"label"`
	Status         StepStatus     `json:"status"`
	TransitionedAt time.Time      `json:"transitioned_at"`
	DurationMs     *int64         `json:"duration_ms,omitempty"`
	Detail         map[string]any `json:"detail,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// RunStatus is the lifecycle state of a whole run.
type RunStatus string

// Run status values.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEntry is one audit log record of a step's full input/output payload.
type AuditEntry struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	StepID       string    `json:"step_id"`
	Payload      any       `json:"payload,omitempty"`
	PayloadBytes int       `json:"payload_bytes"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// RecordStepPayload inserts an audit log entry for a step's payload.
// Insert-only; one run/step pair may accumulate multiple entries.
func (db *DB) RecordStepPayload(ctx context.Context, runID, stepID string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO step_audit (run_id, step_id, payload, payload_bytes)
		 VALUES ($1, $2, $3, $4)`,
		runID, stepID, payloadJSON, len(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record step payload %s: %w", stepID, err)
	}
	return nil
}

// ListStepAudit returns audit entries for a run in insertion order.
func (db *DB) ListStepAudit(ctx context.Context, runID string) ([]AuditEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, step_id, payload, payload_bytes, recorded_at
		 FROM step_audit WHERE run_id = $1 ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list step audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.StepID, &payloadJSON, &e.PayloadBytes, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(payloadJSON) > 0 {
			_ = json.Unmarshal(payloadJSON, &e.Payload)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/landing-agent/internal/types"
)

// UpsertStepStatus replaces-or-inserts the step status document for the
// compound key (run_id, step_id). Calling it twice with the same record
// leaves exactly one row whose timestamp reflects the later call.
func (db *DB) UpsertStepStatus(ctx context.Context, runID string, rec types.StepRecord) error {
	var detailJSON []byte
	if rec.Detail != nil {
		var err error
		detailJSON, err = json.Marshal(rec.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal step detail: %w", err)
		}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO step_status
		   (run_id, step_id, label, status, transitioned_at, duration_ms, detail, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id, step_id) DO UPDATE SET
		   label = $3, status = $4, transitioned_at = $5, duration_ms = $6,
		   detail = $7, error_message = $8`,
		runID, rec.StepID, rec.Label, string(rec.Status), rec.TransitionedAt,
		rec.DurationMs, detailJSON, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert step status %s: %w", rec.StepID, err)
	}
	return nil
}

// ListStepStatuses returns all current step records for a run, ordered by
// transition timestamp ascending so the earliest-initialized step comes first.
func (db *DB) ListStepStatuses(ctx context.Context, runID string) ([]types.StepRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT step_id, label, status, transitioned_at, duration_ms, detail, error_message
		 FROM step_status
		 WHERE run_id = $1
		 ORDER BY transitioned_at ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list step statuses: %w", err)
	}
	defer rows.Close()

	var records []types.StepRecord
	for rows.Next() {
		var rec types.StepRecord
		var status string
		var detailJSON []byte
		if err := rows.Scan(&rec.StepID, &rec.Label, &status, &rec.TransitionedAt,
			&rec.DurationMs, &detailJSON, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan step status: %w", err)
		}
		rec.Status = types.StepStatus(status)
		if len(detailJSON) > 0 {
			_ = json.Unmarshal(detailJSON, &rec.Detail)
		}
		records = append(records, rec)
	}
	return records, nil
}


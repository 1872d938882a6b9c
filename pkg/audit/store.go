package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

// RecordEvent inserts ev into job_events. It satisfies the projector's
// auditSink interface.
func (c *Client) RecordEvent(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("audit: marshal payload: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO job_events (job_id, event_type, source, occurred_at, correlation_id, payload)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`, ev.JobID, string(ev.EventType), ev.Source, ev.Timestamp, ev.CorrelationID, payload)
	if err != nil {
		return fmt.Errorf("audit: insert event for %s: %w", ev.JobID, err)
	}
	return nil
}

// storedEvent is one row of job_events, as returned by ListByJob.
type storedEvent struct {
	ID            int64          `json:"id"`
	JobID         string         `json:"job_id"`
	EventType     string         `json:"event_type"`
	Source        string         `json:"source"`
	OccurredAt    string         `json:"occurred_at"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// ListByJob returns every audited event for jobID, oldest first, past the
// job store's own TTL. Primarily useful for operator debugging once a
// job record has expired from Redis.
func (c *Client) ListByJob(ctx context.Context, jobID string) ([]storedEvent, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, job_id, event_type, source, occurred_at::text, COALESCE(correlation_id, ''), payload
		FROM job_events
		WHERE job_id = $1
		ORDER BY id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("audit: list events for %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []storedEvent
	for rows.Next() {
		var (
			ev      storedEvent
			payload []byte
		)
		if err := rows.Scan(&ev.ID, &ev.JobID, &ev.EventType, &ev.Source, &ev.OccurredAt, &ev.CorrelationID, &payload); err != nil {
			return nil, fmt.Errorf("audit: scan event row: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("audit: decode payload for event %d: %w", ev.ID, err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

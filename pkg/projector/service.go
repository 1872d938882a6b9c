// Package projector implements the status-projector service: a passive
// consumer of the shared topic exchange that appends every event to a
// job's event log and applies the deterministic status-projection table.
// It is the only component other than the Downloader/Translator's own
// in-progress projections that writes job status.
package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

// eventStore is the slice of jobstore.Client the projector depends on.
type eventStore interface {
	RecordEvent(ctx context.Context, id string, ev models.Event) error
	UpdateJobStatus(ctx context.Context, id string, newStatus models.Status, errMsg, resultURL string, now time.Time) (*models.Job, error)
}

// auditSink mirrors an event into durable storage past the job store's
// TTL. A nil auditSink disables the audit trail entirely.
type auditSink interface {
	RecordEvent(ctx context.Context, ev models.Event) error
}

// Service applies the status-projection table to every event it sees.
type Service struct {
	store eventStore
	audit auditSink
}

// New builds a Service. audit may be nil, in which case no durable audit
// trail is written.
func New(store eventStore, audit auditSink) *Service {
	return &Service{store: store, audit: audit}
}

// statusFor maps an event type to the status it projects, mirroring the
// projection table. ok is false for event types that carry no status
// change (media.file.detected, translation.completed) or that the
// projector does not recognize.
func statusFor(ev models.Event) (status models.Status, ok bool) {
	switch ev.EventType {
	case models.EventSubtitleDownloadRequested:
		return models.StatusDownloadQueued, true
	case models.EventSubtitleTranslateRequested:
		return models.StatusTranslateQueued, true
	case models.EventSubtitleReady, models.EventSubtitleTranslated:
		return models.StatusDone, true
	case models.EventSubtitleMissing:
		return models.StatusSubtitleMissing, true
	case models.EventJobFailed:
		return models.StatusFailed, true
	default:
		return "", false
	}
}

// HandleEvent is the projector's bus.Handler, bound against
// bus.ConsumerBindings. Every event is appended to the job's log
// regardless of whether it projects a status; audit-only event types
// (media.file.detected, translation.completed, and anything the wire
// schema grows later) are recorded but otherwise a no-op.
func (s *Service) HandleEvent(ctx context.Context, body []byte) error {
	var ev models.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		slog.Error("projector: malformed event envelope, dropping", "error", err)
		return nil
	}
	if ev.JobID == "" {
		slog.Warn("projector: event missing job_id, dropping", "event_type", ev.EventType)
		return nil
	}

	if err := s.store.RecordEvent(ctx, ev.JobID, ev); err != nil {
		return fmt.Errorf("projector: record event for %s: %w", ev.JobID, err)
	}

	if s.audit != nil {
		if err := s.audit.RecordEvent(ctx, ev); err != nil {
			slog.Error("projector: audit mirror failed, job store remains authoritative",
				"job_id", ev.JobID, "event_type", ev.EventType, "error", err)
		}
	}

	status, ok := statusFor(ev)
	if !ok {
		return nil
	}

	errMsg, resultURL := extractProjectionFields(ev)

	job, err := s.store.UpdateJobStatus(ctx, ev.JobID, status, errMsg, resultURL, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("projector: update status for %s: %w", ev.JobID, err)
	}
	if job.Status != status {
		slog.Info("projector: ignored out-of-order or redundant transition",
			"job_id", ev.JobID, "event_type", ev.EventType, "wanted", status, "actual", job.Status)
	}
	return nil
}

// extractProjectionFields pulls the error message (job.failed) and
// result URL (subtitle.ready, subtitle.translated) out of an event's
// payload, tolerating their absence.
func extractProjectionFields(ev models.Event) (errMsg, resultURL string) {
	if ev.Payload == nil {
		return "", ""
	}
	errMsg, _ = ev.Payload["error_message"].(string)
	resultURL, _ = ev.Payload["result_url"].(string)
	return errMsg, resultURL
}

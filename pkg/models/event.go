package models

import "time"

// EventType is the routing key used on the event bus and stored alongside
// each job event record.
type EventType string

// Event types carried on the subtitle.events exchange.
const (
	EventSubtitleRequested          EventType = "subtitle.requested"
	EventSubtitleDownloadRequested  EventType = "subtitle.download.requested"
	EventSubtitleReady              EventType = "subtitle.ready"
	EventSubtitleMissing            EventType = "subtitle.missing"
	EventSubtitleTranslateRequested EventType = "subtitle.translate.requested"
	EventSubtitleTranslated         EventType = "subtitle.translated"
	EventTranslationCompleted       EventType = "translation.completed"
	EventMediaFileDetected          EventType = "media.file.detected"
	EventJobFailed                  EventType = "job.failed"
)

// Event is the envelope carried in every message body on the bus, and is
// also what gets appended to a job's event log.
type Event struct {
	EventType     EventType      `json:"event_type"`
	JobID         string         `json:"job_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Source        string         `json:"source"`
	Payload       map[string]any `json:"payload,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ErrorType classifies a job.failed payload's "error_type" field.
type ErrorType string

// The closed taxonomy of failure classes surfaced in job.failed events.
const (
	ErrorInvalidRequest      ErrorType = "invalid_request"
	ErrorInvalidVideoPath    ErrorType = "invalid_video_path"
	ErrorFileNotFound        ErrorType = "file_not_found"
	ErrorRateLimit           ErrorType = "rate_limit"
	ErrorAPIError            ErrorType = "api_error"
	ErrorAuthenticationError ErrorType = "authentication_error"
	ErrorQueuePublishFailed  ErrorType = "queue_publish_failed"
	ErrorJSONParseError      ErrorType = "json_parse_error"
	ErrorTranslationError    ErrorType = "translation_error"
	ErrorProcessingError     ErrorType = "processing_error"
)

// JobFailedPayload is the payload shape of a job.failed event.
type JobFailedPayload struct {
	ErrorType    ErrorType `json:"error_type"`
	ErrorMessage string    `json:"error_message"`
}

// ToPayload renders p as the generic payload map carried by Event.
func (p JobFailedPayload) ToPayload() map[string]any {
	return map[string]any{
		"error_type":    string(p.ErrorType),
		"error_message": p.ErrorMessage,
	}
}

// Package models holds the shared data types for the subtitle-acquisition
// pipeline: jobs, job events, and the status state machine. These types are
// imported by every service binary and by the job store.
package models

import "time"

// Status is a job's position in the lifecycle state machine.
type Status string

// Job statuses, in roughly the order a job passes through them.
const (
	StatusPending             Status = "PENDING"
	StatusDownloadQueued      Status = "DOWNLOAD_QUEUED"
	StatusDownloadInProgress  Status = "DOWNLOAD_IN_PROGRESS"
	StatusTranslateQueued     Status = "TRANSLATE_QUEUED"
	StatusTranslateInProgress Status = "TRANSLATE_IN_PROGRESS"
	StatusDone                Status = "DONE"
	StatusSubtitleMissing     Status = "SUBTITLE_MISSING"
	StatusFailed              Status = "FAILED"
)

// terminal holds the set of statuses a job does not leave.
var terminal = map[Status]bool{
	StatusDone:            true,
	StatusFailed:          true,
	StatusSubtitleMissing: true,
}

// IsTerminal reports whether s is a terminal status.
func (s Status) IsTerminal() bool {
	return terminal[s]
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDownloadQueued, StatusDownloadInProgress,
		StatusTranslateQueued, StatusTranslateInProgress,
		StatusDone, StatusSubtitleMissing, StatusFailed:
		return true
	}
	return false
}

// transitions enumerates the permitted successor statuses for each status.
// Transitions not listed here are ignored by the projector, not treated as
// errors: redelivered or out-of-order events must never crash a handler.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusDownloadQueued: true,
		StatusFailed:         true,
	},
	StatusDownloadQueued: {
		StatusDownloadInProgress: true,
		StatusFailed:             true,
	},
	StatusDownloadInProgress: {
		StatusDone:            true,
		StatusTranslateQueued: true,
		StatusSubtitleMissing: true,
		StatusFailed:          true,
	},
	StatusTranslateQueued: {
		StatusTranslateInProgress: true,
		StatusFailed:              true,
	},
	StatusTranslateInProgress: {
		StatusDone:   true,
		StatusFailed: true,
	},
}

// CanTransition reports whether moving from `from` to `to` is a permitted
// state-machine edge. Identical from/to is always allowed (idempotent
// redelivery of the same projection).
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	return transitions[from][to]
}

// Progress maps a status to the 0-100 progress value reported by the status
// endpoint.
func (s Status) Progress() int {
	switch s {
	case StatusPending:
		return 0
	case StatusDownloadQueued, StatusDownloadInProgress:
		return 25
	case StatusTranslateQueued, StatusTranslateInProgress:
		return 75
	case StatusDone:
		return 100
	case StatusFailed, StatusSubtitleMissing:
		return 0
	default:
		return 0
	}
}

// Job is the unit of work tracked end to end by the pipeline.
type Job struct {
	ID             string    `json:"id"`
	VideoURL       string    `json:"video_url"`
	VideoTitle     string    `json:"video_title"`
	Language       string    `json:"language"`
	TargetLanguage string    `json:"target_language,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ResultURL      string    `json:"result_url,omitempty"`
}

// Touch advances UpdatedAt to now, preserving the monotonic-per-job
// invariant as long as callers always go through Touch: a now earlier
// than the current UpdatedAt leaves it unchanged.
func (j *Job) Touch(now time.Time) {
	if now.After(j.UpdatedAt) {
		j.UpdatedAt = now
	}
}

// WantsTranslation reports whether the job declared a target language
// distinct from its source language, i.e. translation is permitted.
func (j *Job) WantsTranslation() bool {
	return j.TargetLanguage != "" && j.TargetLanguage != j.Language
}

package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/models"
	"github.com/codeready-toolchain/subtitlebus/pkg/subtitle"
)

// eventPublisher is the slice of bus.Publisher the manager depends on.
type eventPublisher interface {
	PublishEvent(ctx context.Context, ev models.Event) error
	PublishTask(ctx context.Context, queue string, body []byte) error
}

// consumerHealth is the slice of bus.Consumer the manager's
// /health/consumer endpoint reports on.
type consumerHealth interface {
	Healthy() (connected bool, lastMessageAt time.Time)
}

// Service implements the manager's event-handling and request-creation
// logic, shared by the HTTP handlers and the subtitle.requested consumer.
type Service struct {
	store     *jobstore.Client
	publisher eventPublisher
}

// New builds a Service.
func New(store *jobstore.Client, publisher eventPublisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// downloadTaskPayload is the message body placed on the download queue.
type downloadTaskPayload struct {
	JobID            string   `json:"job_id"`
	VideoURL         string   `json:"video_url"`
	VideoTitle       string   `json:"video_title"`
	Language         string   `json:"language"`
	CatalogueID      string   `json:"catalogue_id,omitempty"`
	PreferredSources []string `json:"preferred_sources,omitempty"`
}

// translationTaskPayload is the message body placed on the translation queue.
type translationTaskPayload struct {
	JobID          string `json:"job_id"`
	SubtitlePath   string `json:"subtitle_path"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// HandleSubtitleRequested is the subtitle.requested consumer entrypoint.
// Dedup keys off (video_url, language): an event whose job id differs from
// the one already registered for that pair is skipped, while a redelivery
// of the same event (same job id) enqueues the download task again.
func (s *Service) HandleSubtitleRequested(ctx context.Context, ev models.Event) error {
	videoURL, _ := ev.Payload["video_url"].(string)
	videoTitle, _ := ev.Payload["video_title"].(string)
	language, _ := ev.Payload["language"].(string)
	catalogueID, _ := ev.Payload["catalogue_id"].(string)

	if videoURL == "" || videoTitle == "" || language == "" {
		return s.failJob(ctx, ev.JobID, models.ErrorInvalidRequest, "subtitle.requested payload missing a required field")
	}
	if !subtitle.ValidLanguageCode(language) {
		return s.failJob(ctx, ev.JobID, models.ErrorInvalidRequest, "subtitle.requested language must be exactly two lowercase letters")
	}

	dedup := s.store.CheckAndRegister(ctx, videoURL, language, ev.JobID)
	if dedup.IsDuplicate && dedup.ExistingJobID != ev.JobID {
		slog.Info("manager: skipping duplicate subtitle.requested", "job_id", ev.JobID, "existing_job_id", dedup.ExistingJobID)
		return nil
	}

	return s.enqueueDownload(ctx, ev.JobID, videoURL, videoTitle, language, catalogueID, nil)
}

// CreateDownloadJob implements POST /subtitles/download: persist a new
// PENDING job, then enqueue the download task.
func (s *Service) CreateDownloadJob(ctx context.Context, req DownloadRequest) (*models.Job, error) {
	return s.createDownloadJob(ctx, req, uuid.NewString())
}

// createDownloadJob is CreateDownloadJob with the job id chosen by the caller.
func (s *Service) createDownloadJob(ctx context.Context, req DownloadRequest, id string) (*models.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	target := req.TargetLanguage
	if target == "" {
		target = req.Language
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:             id,
		VideoURL:       req.VideoURL,
		VideoTitle:     req.VideoTitle,
		Language:       req.Language,
		TargetLanguage: target,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("manager: persist job: %w", err)
	}

	if err := s.enqueueDownload(ctx, job.ID, req.VideoURL, req.VideoTitle, req.Language, req.CatalogueID, req.PreferredSources); err != nil {
		return nil, err
	}
	return job, nil
}

// CreateTranslationJob implements POST /subtitles/translate: persist a
// new PENDING job with no video_url, then enqueue the translation task
// directly.
func (s *Service) CreateTranslationJob(ctx context.Context, req TranslateRequest) (*models.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:             uuid.NewString(),
		VideoTitle:     req.VideoTitle,
		Language:       req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("manager: persist job: %w", err)
	}

	task := translationTaskPayload{
		JobID:          job.ID,
		SubtitlePath:   req.SubtitlePath,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	}
	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("manager: marshal translation task: %w", err)
	}
	if err := s.publisher.PublishTask(ctx, bus.TranslationQueue, body); err != nil {
		return nil, fmt.Errorf("manager: publish translation task: %w", err)
	}

	if err := s.publisher.PublishEvent(ctx, models.Event{
		EventType: models.EventSubtitleTranslateRequested,
		JobID:     job.ID,
		Timestamp: now,
		Source:    "manager",
		Payload: map[string]any{
			"subtitle_path":   req.SubtitlePath,
			"source_language": req.SourceLanguage,
			"target_language": req.TargetLanguage,
		},
	}); err != nil {
		slog.Error("manager: failed to emit subtitle.translate.requested", "job_id", job.ID, "error", err)
	}

	return job, nil
}

// HandleJellyfinWebhook implements POST /webhooks/jellyfin. Returns one
// of "received", "duplicate", "ignored" plus the job id when relevant, or
// "error" together with the error when the job cannot be created.
func (s *Service) HandleJellyfinWebhook(ctx context.Context, webhook JellyfinWebhook) (status string, jobID string, err error) {
	if !webhook.isRelevant() {
		return "ignored", "", nil
	}

	videoURL := webhook.resolveVideoURL()
	if videoURL == "" {
		return "ignored", "", nil
	}

	candidateID := uuid.NewString()
	dedup := s.store.CheckAndRegister(ctx, videoURL, "en", candidateID)
	if dedup.IsDuplicate {
		return "duplicate", dedup.ExistingJobID, nil
	}

	job, err := s.createDownloadJob(ctx, DownloadRequest{
		VideoURL:    videoURL,
		VideoTitle:  webhook.ItemName,
		Language:    "en",
		CatalogueID: webhook.ItemID,
	}, candidateID)
	if err != nil {
		return "error", "", err
	}
	return "received", job.ID, nil
}

func (s *Service) enqueueDownload(ctx context.Context, jobID, videoURL, videoTitle, language, catalogueID string, preferredSources []string) error {
	task := downloadTaskPayload{
		JobID:            jobID,
		VideoURL:         videoURL,
		VideoTitle:       videoTitle,
		Language:         language,
		CatalogueID:      catalogueID,
		PreferredSources: preferredSources,
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("manager: marshal download task: %w", err)
	}
	if err := s.publisher.PublishTask(ctx, bus.DownloadQueue, body); err != nil {
		return s.failJob(ctx, jobID, models.ErrorQueuePublishFailed, err.Error())
	}

	now := time.Now().UTC()
	if err := s.publisher.PublishEvent(ctx, models.Event{
		EventType: models.EventSubtitleDownloadRequested,
		JobID:     jobID,
		Timestamp: now,
		Source:    "manager",
		Payload: map[string]any{
			"video_url":   videoURL,
			"video_title": videoTitle,
			"language":    language,
		},
	}); err != nil {
		slog.Error("manager: failed to emit subtitle.download.requested", "job_id", jobID, "error", err)
	}
	return nil
}

func (s *Service) failJob(ctx context.Context, jobID string, errorType models.ErrorType, message string) error {
	payload := models.JobFailedPayload{ErrorType: errorType, ErrorMessage: message}
	ev := models.Event{
		EventType: models.EventJobFailed,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Source:    "manager",
		Payload:   payload.ToPayload(),
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		return fmt.Errorf("manager: publish job.failed: %w", err)
	}
	return nil
}

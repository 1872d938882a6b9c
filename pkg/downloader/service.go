package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
	"github.com/codeready-toolchain/subtitlebus/pkg/catalogue"
	"github.com/codeready-toolchain/subtitlebus/pkg/models"
	"github.com/codeready-toolchain/subtitlebus/pkg/subtitle"
)

// jobStore is the slice of jobstore.Client the downloader depends on.
type jobStore interface {
	UpdateJobStatus(ctx context.Context, id string, newStatus models.Status, errMsg, resultURL string, now time.Time) (*models.Job, error)
}

// eventPublisher is the slice of bus.Publisher the downloader depends on.
type eventPublisher interface {
	PublishEvent(ctx context.Context, ev models.Event) error
	PublishTask(ctx context.Context, queue string, body []byte) error
}

// Service implements the subtitle.download consumer's decision tree.
type Service struct {
	store              jobStore
	publisher          eventPublisher
	catalogue          catalogue.Client
	translationEnabled bool
	fallbackLanguage   string
}

// New builds a Service.
func New(store jobStore, publisher eventPublisher, cat catalogue.Client, translationEnabled bool, fallbackLanguage string) *Service {
	return &Service{
		store:              store,
		publisher:          publisher,
		catalogue:          cat,
		translationEnabled: translationEnabled,
		fallbackLanguage:   fallbackLanguage,
	}
}

// HandleTask is the subtitle.download queue's Handler. It is idempotent:
// redelivery of the same task re-runs the same search/download steps,
// which either land on the same outcome or harmlessly overwrite the same
// output file.
func (s *Service) HandleTask(ctx context.Context, body []byte) error {
	var task taskPayload
	if err := json.Unmarshal(body, &task); err != nil {
		slog.Error("downloader: malformed task payload, dropping", "error", err)
		return nil
	}
	if task.JobID == "" {
		slog.Error("downloader: task payload missing job_id, dropping")
		return nil
	}

	now := time.Now().UTC()
	if _, err := s.store.UpdateJobStatus(ctx, task.JobID, models.StatusDownloadInProgress, "", "", now); err != nil {
		return fmt.Errorf("downloader: project DOWNLOAD_IN_PROGRESS: %w", err)
	}

	if task.VideoURL == "" || task.VideoTitle == "" || task.Language == "" {
		return s.failJob(ctx, task.JobID, models.ErrorInvalidRequest, "download task payload missing a required field")
	}

	result, err := s.searchDirect(ctx, task, task.Language)
	if err != nil && !errors.Is(err, catalogue.ErrNotFound) {
		errType, degradable := classifyCatalogueError(err)
		if degradable {
			return s.degradedFallback(ctx, task, err)
		}
		return s.failJob(ctx, task.JobID, errType, err.Error())
	}

	if result != nil {
		return s.downloadDirect(ctx, task, result)
	}

	if !s.translationEnabled {
		return s.emitMissing(ctx, task)
	}

	return s.fallbackSearch(ctx, task)
}

// searchDirect tries a fingerprint search (when videoURL names a local file
// large enough to fingerprint) and falls back to a metadata search scoped
// to language.
func (s *Service) searchDirect(ctx context.Context, task taskPayload, language string) (*catalogue.Result, error) {
	if subtitle.IsLocalFile(task.VideoURL) {
		path := subtitle.LocalPath(task.VideoURL)
		if info, statErr := os.Stat(path); statErr == nil && info.Size() >= subtitle.MinFingerprintSize {
			fp, fpErr := subtitle.Fingerprint(path)
			if fpErr == nil {
				result, err := s.catalogue.SearchByFingerprint(ctx, fp, info.Size(), language)
				if err == nil {
					return result, nil
				}
				if !errors.Is(err, catalogue.ErrNotFound) {
					return nil, err
				}
			}
		}
	}
	return s.catalogue.SearchByMetadata(ctx, task.CatalogueID, task.VideoTitle, language)
}

// fallbackSearch implements step 5 of the download algorithm: search the
// fallback language, then any language, downloading whatever is found and
// queueing a translation task for it.
func (s *Service) fallbackSearch(ctx context.Context, task taskPayload) error {
	result, err := s.searchDirect(ctx, task, s.fallbackLanguage)
	if err != nil && !errors.Is(err, catalogue.ErrNotFound) {
		errType, degradable := classifyCatalogueError(err)
		if degradable {
			return s.degradedFallback(ctx, task, err)
		}
		return s.failJob(ctx, task.JobID, errType, err.Error())
	}

	if result == nil {
		result, err = s.catalogue.SearchByMetadata(ctx, task.CatalogueID, task.VideoTitle, "")
		if err != nil && !errors.Is(err, catalogue.ErrNotFound) {
			errType, degradable := classifyCatalogueError(err)
			if degradable {
				return s.degradedFallback(ctx, task, err)
			}
			return s.failJob(ctx, task.JobID, errType, err.Error())
		}
	}

	if result == nil {
		return s.emitMissing(ctx, task)
	}

	if !subtitle.IsLocalFile(task.VideoURL) {
		return s.failJob(ctx, task.JobID, models.ErrorInvalidVideoPath, "cannot derive an output path for a non-local video")
	}

	normalized, ok := subtitle.NormalizeLanguage(result.Language)
	if !ok {
		slog.Warn("downloader: unrecognised catalogue language code", "code", result.Language)
	}

	body, err := s.catalogue.Download(ctx, result)
	if err != nil {
		errType, degradable := classifyCatalogueError(err)
		if degradable {
			return s.degradedFallback(ctx, task, err)
		}
		return s.failJob(ctx, task.JobID, errType, err.Error())
	}

	outPath := subtitle.OutputPath(task.VideoURL, normalized)
	if err := writeFile(outPath, body); err != nil {
		return s.failJob(ctx, task.JobID, models.ErrorProcessingError, err.Error())
	}
	if _, statErr := os.Stat(outPath); statErr != nil {
		return s.failJob(ctx, task.JobID, models.ErrorFileNotFound, "downloaded subtitle missing on disk after write")
	}

	return s.publishTranslationTask(ctx, task, outPath, normalized, false)
}

// downloadDirect handles a catalogue hit in the job's own desired language.
func (s *Service) downloadDirect(ctx context.Context, task taskPayload, result *catalogue.Result) error {
	if !subtitle.IsLocalFile(task.VideoURL) {
		return s.failJob(ctx, task.JobID, models.ErrorInvalidVideoPath, "cannot derive an output path for a non-local video")
	}

	body, err := s.catalogue.Download(ctx, result)
	if err != nil {
		errType, degradable := classifyCatalogueError(err)
		if degradable {
			return s.degradedFallback(ctx, task, err)
		}
		return s.failJob(ctx, task.JobID, errType, err.Error())
	}

	outPath := subtitle.OutputPath(task.VideoURL, task.Language)
	if err := writeFile(outPath, body); err != nil {
		return s.failJob(ctx, task.JobID, models.ErrorProcessingError, err.Error())
	}

	return s.publishReady(ctx, task, outPath)
}

// degradedFallback handles the api_error/authentication_error branch of the
// failure taxonomy: the catalogue itself is unreliable, so no further
// catalogue calls are attempted. A translation task is queued blind, marked
// degraded, pointing at the path a fallback-language subtitle would occupy
// if one existed; the translator's own file-open failure is what surfaces
// file_not_found if it doesn't.
func (s *Service) degradedFallback(ctx context.Context, task taskPayload, cause error) error {
	if !subtitle.IsLocalFile(task.VideoURL) {
		return s.failJob(ctx, task.JobID, models.ErrorInvalidVideoPath, "cannot derive an output path for a non-local video")
	}
	outPath := subtitle.OutputPath(task.VideoURL, s.fallbackLanguage)
	slog.Warn("downloader: catalogue degraded, queueing blind translation fallback",
		"job_id", task.JobID, "error", cause)
	return s.publishTranslationTask(ctx, task, outPath, s.fallbackLanguage, true)
}

func (s *Service) publishReady(ctx context.Context, task taskPayload, outPath string) error {
	ev := models.Event{
		EventType: models.EventSubtitleReady,
		JobID:     task.JobID,
		Timestamp: time.Now().UTC(),
		Source:    "downloader",
		Payload: map[string]any{
			"subtitle_path": outPath,
			"language":      task.Language,
			"result_url":    "file://" + outPath,
		},
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		return fmt.Errorf("downloader: publish subtitle.ready: %w", err)
	}
	return nil
}

func (s *Service) publishTranslationTask(ctx context.Context, task taskPayload, subtitlePath, sourceLanguage string, degraded bool) error {
	body, err := json.Marshal(translationTaskPayload{
		JobID:          task.JobID,
		SubtitlePath:   subtitlePath,
		SourceLanguage: sourceLanguage,
		TargetLanguage: task.Language,
		Degraded:       degraded,
	})
	if err != nil {
		return fmt.Errorf("downloader: marshal translation task: %w", err)
	}
	if err := s.publisher.PublishTask(ctx, bus.TranslationQueue, body); err != nil {
		return s.failJob(ctx, task.JobID, models.ErrorQueuePublishFailed, err.Error())
	}

	ev := models.Event{
		EventType: models.EventSubtitleTranslateRequested,
		JobID:     task.JobID,
		Timestamp: time.Now().UTC(),
		Source:    "downloader",
		Payload: map[string]any{
			"subtitle_path":   subtitlePath,
			"source_language": sourceLanguage,
			"target_language": task.Language,
			"degraded":        degraded,
		},
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		slog.Error("downloader: failed to emit subtitle.translate.requested", "job_id", task.JobID, "error", err)
	}
	return nil
}

func (s *Service) emitMissing(ctx context.Context, task taskPayload) error {
	ev := models.Event{
		EventType: models.EventSubtitleMissing,
		JobID:     task.JobID,
		Timestamp: time.Now().UTC(),
		Source:    "downloader",
		Payload: map[string]any{
			"language":    task.Language,
			"video_title": task.VideoTitle,
		},
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		return fmt.Errorf("downloader: publish subtitle.missing: %w", err)
	}
	return nil
}

func (s *Service) failJob(ctx context.Context, jobID string, errorType models.ErrorType, message string) error {
	payload := models.JobFailedPayload{ErrorType: errorType, ErrorMessage: message}
	ev := models.Event{
		EventType: models.EventJobFailed,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Source:    "downloader",
		Payload:   payload.ToPayload(),
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		return fmt.Errorf("downloader: publish job.failed: %w", err)
	}
	return nil
}

// classifyCatalogueError maps a catalogue sentinel error to the job.failed
// error taxonomy and reports whether the error should trigger a degraded
// translation fallback rather than an outright failure.
func classifyCatalogueError(err error) (models.ErrorType, bool) {
	switch {
	case errors.Is(err, catalogue.ErrRateLimited):
		return models.ErrorRateLimit, false
	case errors.Is(err, catalogue.ErrAuthentication):
		return models.ErrorAuthenticationError, true
	case errors.Is(err, catalogue.ErrAPI):
		return models.ErrorAPIError, true
	default:
		return models.ErrorProcessingError, false
	}
}

func writeFile(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("downloader: create output directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("downloader: write %s: %w", path, err)
	}
	return nil
}

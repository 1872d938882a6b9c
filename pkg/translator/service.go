package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codeready-toolchain/subtitlebus/pkg/llm"
	"github.com/codeready-toolchain/subtitlebus/pkg/models"
	"github.com/codeready-toolchain/subtitlebus/pkg/subtitle"
)

// jobStore is the slice of jobstore.Client the translator depends on.
type jobStore interface {
	UpdateJobStatus(ctx context.Context, id string, newStatus models.Status, errMsg, resultURL string, now time.Time) (*models.Job, error)
}

// eventPublisher is the slice of bus.Publisher the translator depends on.
type eventPublisher interface {
	PublishEvent(ctx context.Context, ev models.Event) error
}

// taskPayload is the message body carried on the translation queue.
type taskPayload struct {
	JobID          string `json:"job_id"`
	SubtitlePath   string `json:"subtitle_path"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Degraded       bool   `json:"degraded,omitempty"`
}

// Service implements the subtitle.translation consumer's chunked,
// checkpointed translation algorithm.
type Service struct {
	store         jobStore
	publisher     eventPublisher
	provider      llm.Provider
	chunkSize     int
	checkpointDir string
	resultBaseURL string
}

// New builds a Service.
func New(store jobStore, publisher eventPublisher, provider llm.Provider, chunkSize int, checkpointDir, resultBaseURL string) *Service {
	if chunkSize < 1 {
		chunkSize = 50
	}
	return &Service{
		store:         store,
		publisher:     publisher,
		provider:      provider,
		chunkSize:     chunkSize,
		checkpointDir: checkpointDir,
		resultBaseURL: resultBaseURL,
	}
}

// HandleTask is the subtitle.translation queue's Handler.
func (s *Service) HandleTask(ctx context.Context, body []byte) error {
	var task taskPayload
	if err := json.Unmarshal(body, &task); err != nil {
		slog.Error("translator: malformed task payload, dropping", "error", err)
		return nil
	}
	if task.JobID == "" {
		slog.Error("translator: task payload missing job_id, dropping")
		return nil
	}

	if _, err := s.store.UpdateJobStatus(ctx, task.JobID, models.StatusTranslateInProgress, "", "", time.Now().UTC()); err != nil {
		return fmt.Errorf("translator: project TRANSLATE_IN_PROGRESS: %w", err)
	}

	sourceLang, _ := subtitle.NormalizeLanguage(task.SourceLanguage)
	targetLang, _ := subtitle.NormalizeLanguage(task.TargetLanguage)

	raw, err := os.ReadFile(task.SubtitlePath)
	if err != nil {
		return s.failJob(ctx, task.JobID, models.ErrorFileNotFound, fmt.Sprintf("subtitle file not found: %s", task.SubtitlePath))
	}

	segments := subtitle.Parse(string(raw))
	if len(segments) == 0 {
		return s.failJob(ctx, task.JobID, models.ErrorInvalidRequest, "source subtitle file has no parseable segments")
	}

	chunks, err := subtitle.Chunk(segments, s.chunkSize)
	if err != nil {
		return s.failJob(ctx, task.JobID, models.ErrorProcessingError, err.Error())
	}

	cpPath := subtitle.CheckpointPath(s.checkpointDir, task.JobID, targetLang)
	cp, err := loadCheckpoint(cpPath)
	if err != nil {
		slog.Warn("translator: ignoring unreadable checkpoint", "job_id", task.JobID, "error", err)
		cp = nil
	}
	if cp != nil && !cp.matches(task.SubtitlePath, sourceLang, targetLang) {
		slog.Info("translator: checkpoint metadata mismatch, starting from zero", "job_id", task.JobID)
		cp = nil
	}
	if cp == nil {
		cp = &checkpoint{
			JobID:          task.JobID,
			SourcePath:     task.SubtitlePath,
			SourceLanguage: sourceLang,
			TargetLanguage: targetLang,
			Translated:     map[int][]string{},
		}
	}

	completed := cp.completedSet()
	now := time.Now().UTC()

	for idx, chunk := range chunks {
		if completed[idx] {
			continue
		}

		texts, err := s.provider.Translate(ctx, chunk.Texts(), sourceLang, targetLang)
		if err != nil {
			if saveErr := cp.save(cpPath, time.Now().UTC()); saveErr != nil {
				slog.Error("translator: failed to persist checkpoint", "job_id", task.JobID, "error", saveErr)
			}
			return s.failTranslation(ctx, task.JobID, err, cpPath)
		}

		translatedChunk, err := subtitle.MergeTranslations(chunk, texts)
		if err != nil {
			return s.failJob(ctx, task.JobID, models.ErrorTranslationError, err.Error())
		}

		cp.Translated[idx] = translatedChunk.Texts()
		cp.CompletedChunks = append(cp.CompletedChunks, idx)
		completed[idx] = true

		if err := cp.save(cpPath, time.Now().UTC()); err != nil {
			slog.Error("translator: failed to persist checkpoint", "job_id", task.JobID, "error", err)
		}

		s.emitChunkCompleted(ctx, task.JobID, idx, len(chunks))
	}

	translatedTexts := flattenTranslated(cp, len(chunks))
	translated, err := subtitle.MergeTranslations(segments, translatedTexts)
	if err != nil {
		return s.failJob(ctx, task.JobID, models.ErrorTranslationError, err.Error())
	}

	outPath := subtitle.TranslatedPath(task.SubtitlePath, targetLang)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return s.failJob(ctx, task.JobID, models.ErrorProcessingError, err.Error())
	}
	if err := os.WriteFile(outPath, []byte(subtitle.Format(translated)), 0o644); err != nil {
		return s.failJob(ctx, task.JobID, models.ErrorProcessingError, err.Error())
	}

	if err := deleteCheckpoint(cpPath); err != nil {
		slog.Warn("translator: failed to delete checkpoint after success", "job_id", task.JobID, "error", err)
	}

	resultURL := fmt.Sprintf("%s/%s/%s", s.resultBaseURL, task.JobID, targetLang)
	ev := models.Event{
		EventType: models.EventSubtitleTranslated,
		JobID:     task.JobID,
		Timestamp: now,
		Source:    "translator",
		Payload: map[string]any{
			"subtitle_path": outPath,
			"language":      targetLang,
			"result_url":    resultURL,
		},
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		return fmt.Errorf("translator: publish subtitle.translated: %w", err)
	}
	return nil
}

// emitChunkCompleted publishes an internal, informational progress event
// after each chunk finishes. The projector records it in the job's event
// log but applies no status change for it. Best-effort: a publish failure
// here must not abort an otherwise-successful translation.
func (s *Service) emitChunkCompleted(ctx context.Context, jobID string, chunkIndex, totalChunks int) {
	ev := models.Event{
		EventType: models.EventTranslationCompleted,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Source:    "translator",
		Payload: map[string]any{
			"chunk_index":  chunkIndex,
			"total_chunks": totalChunks,
		},
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		slog.Warn("translator: failed to emit translation.completed", "job_id", jobID, "error", err)
	}
}

// failTranslation classifies an LLM call failure. A json_parse_error (the
// robust parser gave up) and a generic translation_error are both
// terminal; the checkpoint is left in place so a retry resumes from the
// last completed chunk rather than starting over.
func (s *Service) failTranslation(ctx context.Context, jobID string, err error, cpPath string) error {
	errType := models.ErrorTranslationError
	if errors.Is(err, llm.ErrMalformedResponse) {
		errType = models.ErrorJSONParseError
	}
	slog.Warn("translator: chunk translation failed, checkpoint retained for retry", "job_id", jobID, "checkpoint", cpPath, "error", err)
	return s.failJob(ctx, jobID, errType, err.Error())
}

func (s *Service) failJob(ctx context.Context, jobID string, errorType models.ErrorType, message string) error {
	payload := models.JobFailedPayload{ErrorType: errorType, ErrorMessage: message}
	ev := models.Event{
		EventType: models.EventJobFailed,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Source:    "translator",
		Payload:   payload.ToPayload(),
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		return fmt.Errorf("translator: publish job.failed: %w", err)
	}
	return nil
}

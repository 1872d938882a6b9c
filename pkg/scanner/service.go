// Package scanner detects media needing subtitles — via filesystem
// watch, periodic full sync, or an on-demand trigger — and emits
// subtitle.requested events for the manager to pick up.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

// eventPublisher is the slice of bus.Publisher the scanner depends on,
// narrow enough to fake in tests without a live broker.
type eventPublisher interface {
	PublishEvent(ctx context.Context, ev models.Event) error
}

// Service owns the filesystem watch, the periodic sync schedule, and
// the on-demand scan trigger, all of which funnel into the same
// considerCandidate path.
type Service struct {
	store     *jobstore.Client
	publisher eventPublisher

	mediaRoots      []string
	targetLanguages []string
	syncInterval    time.Duration

	stability *stabilityChecker
	watcher   *fsnotify.Watcher
	cron      *cron.Cron

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Config carries everything Service needs beyond its collaborators.
type Config struct {
	MediaRoots      []string
	TargetLanguages []string
	SyncInterval    time.Duration
	DebounceWindow  time.Duration
}

// New builds a Service. It does not start watching until Start is called.
func New(store *jobstore.Client, publisher eventPublisher, cfg Config) (*Service, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scanner: create watcher: %w", err)
	}

	debounce := cfg.DebounceWindow
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	return &Service{
		store:           store,
		publisher:       publisher,
		mediaRoots:      cfg.MediaRoots,
		targetLanguages: cfg.TargetLanguages,
		syncInterval:    cfg.SyncInterval,
		stability:       newStabilityChecker(debounce),
		watcher:         watcher,
		stopCh:          make(chan struct{}),
	}, nil
}

// Start begins the filesystem watch and the periodic full sync.
func (s *Service) Start(ctx context.Context) error {
	for _, root := range s.mediaRoots {
		if err := s.watchRecursively(root); err != nil {
			return fmt.Errorf("scanner: watch %s: %w", root, err)
		}
	}

	s.wg.Add(1)
	go s.watchLoop(ctx)

	interval := s.syncInterval
	if interval <= 0 {
		interval = time.Hour
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval.String()), func() {
		s.FullSync(ctx)
	}); err != nil {
		return fmt.Errorf("scanner: schedule full sync: %w", err)
	}
	s.cron.Start()

	return nil
}

// Stop halts the watch loop and the periodic sync.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		_ = s.watcher.Close()
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
	})
	s.wg.Wait()
}

func (s *Service) watchRecursively(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return s.watcher.Add(path)
		}
		return nil
	})
}

func (s *Service) watchLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isVideoFile(event.Name) {
				continue
			}
			path := event.Name
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleCandidate(ctx, path)
			}()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("scanner: watcher error", "error", err)
		}
	}
}

func (s *Service) handleCandidate(ctx context.Context, path string) {
	if !s.stability.WaitStable(path, func(p string) (int64, error) {
		info, err := os.Stat(p)
		if err != nil {
			return 0, err
		}
		return info.Size(), nil
	}) {
		// superseded by a newer event for the same path
		return
	}

	if _, err := os.Stat(path); err != nil {
		slog.Warn("scanner: candidate disappeared before processing", "path", path, "error", err)
		return
	}

	for _, lang := range s.targetLanguages {
		s.considerCandidate(ctx, path, lang)
	}
}

// considerCandidate skips files that already have a sibling subtitle
// for lang, then dedups and emits subtitle.requested for the rest.
func (s *Service) considerCandidate(ctx context.Context, videoPath, lang string) {
	if hasSiblingSubtitle(videoPath, lang) {
		return
	}

	videoURL := "file://" + videoPath
	jobID := uuid.NewString()

	dedup := s.store.CheckAndRegister(ctx, videoURL, lang, jobID)
	if dedup.IsDuplicate {
		slog.Debug("scanner: skipping duplicate candidate", "path", videoPath, "language", lang, "existing_job_id", dedup.ExistingJobID)
		return
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:             jobID,
		VideoURL:       videoURL,
		VideoTitle:     strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath)),
		Language:       lang,
		TargetLanguage: lang,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		slog.Error("scanner: failed to persist job", "job_id", jobID, "error", err)
		return
	}

	ev := models.Event{
		EventType: models.EventSubtitleRequested,
		JobID:     jobID,
		Timestamp: now,
		Source:    "scanner",
		Payload: map[string]any{
			"video_url":   videoURL,
			"video_title": job.VideoTitle,
			"language":    lang,
		},
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		slog.Error("scanner: failed to publish subtitle.requested", "job_id", jobID, "error", err)
	}
}

func hasSiblingSubtitle(videoPath, lang string) bool {
	dir := filepath.Dir(videoPath)
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	candidate := filepath.Join(dir, fmt.Sprintf("%s.%s.srt", stem, lang))
	_, err := os.Stat(candidate)
	return err == nil
}

// FullSync walks every media root and considers each video file that
// doesn't already have every configured target-language subtitle.
// Safe to call concurrently with the filesystem watch; dedup handles
// any overlap.
func (s *Service) FullSync(ctx context.Context) {
	for _, root := range s.mediaRoots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() || !isVideoFile(path) {
				return nil
			}
			for _, lang := range s.targetLanguages {
				s.considerCandidate(ctx, path, lang)
			}
			return nil
		})
		if err != nil {
			slog.Error("scanner: full sync walk failed", "root", root, "error", err)
		}
	}
}

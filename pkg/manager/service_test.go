package manager

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/subtitlebus/pkg/config"
	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

type fakeBus struct {
	mu     sync.Mutex
	events []models.Event
	tasks  map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{tasks: map[string][][]byte{}}
}

func (f *fakeBus) PublishEvent(ctx context.Context, ev models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeBus) PublishTask(ctx context.Context, queue string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[queue] = append(f.tasks[queue], body)
	return nil
}

func newTestService(t *testing.T) (*Service, *jobstore.Client, *fakeBus) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := jobstore.NewFromRedis(rdb, config.RedisConfig{DedupWindow: 30 * time.Minute})
	fb := newFakeBus()
	return New(store, fb), store, fb
}

func TestCreateDownloadJobPersistsAndEnqueues(t *testing.T) {
	svc, store, fb := newTestService(t)
	ctx := context.Background()

	job, err := svc.CreateDownloadJob(ctx, DownloadRequest{
		VideoURL:   "file:///media/a.mp4",
		VideoTitle: "A Movie",
		Language:   "en",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, job.Status)

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, stored.ID)

	require.Len(t, fb.tasks["subtitle.download"], 1)
	require.Len(t, fb.events, 1)
	require.Equal(t, models.EventSubtitleDownloadRequested, fb.events[0].EventType)
}

func TestCreateDownloadJobRejectsInvalidLanguage(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateDownloadJob(context.Background(), DownloadRequest{
		VideoURL:   "file:///media/a.mp4",
		VideoTitle: "A Movie",
		Language:   "english",
	})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestCreateTranslationJobLeavesVideoURLEmpty(t *testing.T) {
	svc, store, fb := newTestService(t)
	ctx := context.Background()

	job, err := svc.CreateTranslationJob(ctx, TranslateRequest{
		SubtitlePath:   "/media/a.en.srt",
		SourceLanguage: "en",
		TargetLanguage: "fr",
	})
	require.NoError(t, err)
	require.Empty(t, job.VideoURL)

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Empty(t, stored.VideoURL)

	require.Len(t, fb.tasks["subtitle.translation"], 1)
	var task translationTaskPayload
	require.NoError(t, json.Unmarshal(fb.tasks["subtitle.translation"][0], &task))
	require.Equal(t, job.ID, task.JobID)
}

func TestCreateTranslationJobRejectsSameSourceAndTarget(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateTranslationJob(context.Background(), TranslateRequest{
		SubtitlePath:   "/media/a.en.srt",
		SourceLanguage: "en",
		TargetLanguage: "en",
	})
	require.Error(t, err)
}

func TestHandleSubtitleRequestedSkipsTrueDuplicate(t *testing.T) {
	svc, _, fb := newTestService(t)
	ctx := context.Background()

	base := models.Event{
		EventType: models.EventSubtitleRequested,
		Timestamp: time.Now().UTC(),
		Source:    "scanner",
		Payload: map[string]any{
			"video_url":   "file:///media/a.mp4",
			"video_title": "A Movie",
			"language":    "en",
		},
	}

	first := base
	first.JobID = "job-a"
	require.NoError(t, svc.HandleSubtitleRequested(ctx, first))

	second := base
	second.JobID = "job-b"
	require.NoError(t, svc.HandleSubtitleRequested(ctx, second))

	require.Len(t, fb.tasks["subtitle.download"], 1)
}

func TestHandleSubtitleRequestedProceedsWhenSameJobIDReregisters(t *testing.T) {
	svc, _, fb := newTestService(t)
	ctx := context.Background()

	ev := models.Event{
		EventType: models.EventSubtitleRequested,
		JobID:     "job-a",
		Timestamp: time.Now().UTC(),
		Source:    "scanner",
		Payload: map[string]any{
			"video_url":   "file:///media/a.mp4",
			"video_title": "A Movie",
			"language":    "en",
		},
	}

	require.NoError(t, svc.HandleSubtitleRequested(ctx, ev))
	require.NoError(t, svc.HandleSubtitleRequested(ctx, ev))

	require.Len(t, fb.tasks["subtitle.download"], 2)
}

func TestHandleSubtitleRequestedFailsOnMissingFields(t *testing.T) {
	svc, _, fb := newTestService(t)
	ctx := context.Background()

	err := svc.HandleSubtitleRequested(ctx, models.Event{
		EventType: models.EventSubtitleRequested,
		JobID:     "job-a",
		Timestamp: time.Now().UTC(),
		Source:    "scanner",
		Payload:   map[string]any{"video_url": ""},
	})
	require.NoError(t, err)
	require.Len(t, fb.events, 1)
	require.Equal(t, models.EventJobFailed, fb.events[0].EventType)
}

func TestHandleJellyfinWebhookIgnoresNonVideoItems(t *testing.T) {
	svc, _, fb := newTestService(t)
	status, _, err := svc.HandleJellyfinWebhook(context.Background(), JellyfinWebhook{
		Event:    "item.added",
		ItemType: "song",
		ItemName: "Track",
	})
	require.NoError(t, err)
	require.Equal(t, "ignored", status)
	require.Empty(t, fb.events)
}

func TestHandleJellyfinWebhookDuplicateOnRapidRepeat(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	webhook := JellyfinWebhook{
		Event:    "item.added",
		ItemType: "movie",
		ItemName: "A Movie",
		ItemPath: "/media/a.mp4",
	}

	status1, jobID1, err := svc.HandleJellyfinWebhook(ctx, webhook)
	require.NoError(t, err)
	require.Equal(t, "received", status1)

	status2, jobID2, err := svc.HandleJellyfinWebhook(ctx, webhook)
	require.NoError(t, err)
	require.Equal(t, "duplicate", status2)
	require.Equal(t, jobID1, jobID2)
}

package translator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/subtitlebus/pkg/config"
	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/llm"
	"github.com/codeready-toolchain/subtitlebus/pkg/models"
	"github.com/codeready-toolchain/subtitlebus/pkg/projector"
	"github.com/codeready-toolchain/subtitlebus/pkg/subtitle"
)

func newRealStore(t *testing.T) *jobstore.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.RedisConfig{DoneTTL: time.Hour, FailedTTL: time.Hour, DedupWindow: time.Hour}
	return jobstore.NewFromRedis(rdb, cfg)
}

type fakeStore struct {
	mu       sync.Mutex
	statuses map[string]models.Status
}

func newFakeStore() *fakeStore { return &fakeStore{statuses: map[string]models.Status{}} }

func (f *fakeStore) UpdateJobStatus(ctx context.Context, id string, newStatus models.Status, errMsg, resultURL string, now time.Time) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = newStatus
	return &models.Job{ID: id, Status: newStatus}, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakeBus) PublishEvent(ctx context.Context, ev models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeBus) eventTypes() []models.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.EventType, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.EventType
	}
	return out
}

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,000\nBonjour\n\n2\n00:00:03,000 --> 00:00:04,000\nAu revoir\n"

func taskBody(t *testing.T, task taskPayload) []byte {
	t.Helper()
	body, err := json.Marshal(task)
	require.NoError(t, err)
	return body
}

func TestHandleTaskTranslatesAndWritesOutput(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "movie.fr.srt")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleSRT), 0o644))

	fb := &fakeBus{}
	store := newFakeStore()
	provider := &llm.Fake{Responses: []string{
		`[{"id":1,"text":"Hello"},{"id":2,"text":"Goodbye"}]`,
	}}
	svc := New(store, fb, provider, 50, filepath.Join(dir, "checkpoints"), "file://results")

	err := svc.HandleTask(context.Background(), taskBody(t, taskPayload{
		JobID:          "job-1",
		SubtitlePath:   srcPath,
		SourceLanguage: "fr",
		TargetLanguage: "en",
	}))
	require.NoError(t, err)
	require.Contains(t, fb.eventTypes(), models.EventSubtitleTranslated)
	require.Contains(t, fb.eventTypes(), models.EventTranslationCompleted)
	require.Equal(t, models.StatusTranslateInProgress, store.statuses["job-1"])

	outPath := filepath.Join(dir, "movie.en.srt")
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "Hello")
	require.Contains(t, string(data), "Goodbye")

	_, err = os.Stat(subtitle.CheckpointPath(filepath.Join(dir, "checkpoints"), "job-1", "en"))
	require.True(t, os.IsNotExist(err))
}

// relayBus forwards every published event straight into a projector, so a
// test can observe the job-status side effect of a translation the same way
// the real pipeline does: translator publishes, projector applies.
type relayBus struct {
	fakeBus
	svc *projector.Service
}

func (r *relayBus) PublishEvent(ctx context.Context, ev models.Event) error {
	if err := r.fakeBus.PublishEvent(ctx, ev); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.svc.HandleEvent(ctx, body)
}

func TestHandleTaskReachesDoneThroughProjector(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "movie.fr.srt")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleSRT), 0o644))

	store := newRealStore(t)
	require.NoError(t, store.SaveJob(context.Background(), &models.Job{
		ID:       "job-5",
		VideoURL: "file:///m/movie.mp4",
		Language: "fr",
		Status:   models.StatusTranslateQueued,
	}))

	rb := &relayBus{svc: projector.New(store, nil)}
	provider := &llm.Fake{Responses: []string{
		`[{"id":1,"text":"Hello"},{"id":2,"text":"Goodbye"}]`,
	}}
	svc := New(store, rb, provider, 50, filepath.Join(dir, "checkpoints"), "file://results")

	err := svc.HandleTask(context.Background(), taskBody(t, taskPayload{
		JobID:          "job-5",
		SubtitlePath:   srcPath,
		SourceLanguage: "fr",
		TargetLanguage: "en",
	}))
	require.NoError(t, err)

	job, err := store.GetJob(context.Background(), "job-5")
	require.NoError(t, err)
	require.Equal(t, models.StatusDone, job.Status)
	require.Equal(t, "file://results/job-5/en", job.ResultURL)
}

func TestHandleTaskResumesFromExistingCheckpoint(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "movie.fr.srt")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleSRT), 0o644))

	checkpointDir := filepath.Join(dir, "checkpoints")
	cpPath := subtitle.CheckpointPath(checkpointDir, "job-2", "en")
	cp := &checkpoint{
		JobID:           "job-2",
		SourcePath:      srcPath,
		SourceLanguage:  "fr",
		TargetLanguage:  "en",
		CompletedChunks: []int{0},
		Translated:      map[int][]string{0: {"Hello", "Goodbye"}},
	}
	require.NoError(t, cp.save(cpPath, time.Now().UTC()))

	fb := &fakeBus{}
	provider := &llm.Fake{} // should not be called: chunk 0 is already complete
	svc := New(newFakeStore(), fb, provider, 50, checkpointDir, "file://results")

	err := svc.HandleTask(context.Background(), taskBody(t, taskPayload{
		JobID:          "job-2",
		SubtitlePath:   srcPath,
		SourceLanguage: "fr",
		TargetLanguage: "en",
	}))
	require.NoError(t, err)
	require.Contains(t, fb.eventTypes(), models.EventSubtitleTranslated)
}

func TestHandleTaskFailsOnMissingSourceFile(t *testing.T) {
	dir := t.TempDir()
	fb := &fakeBus{}
	provider := &llm.Fake{}
	svc := New(newFakeStore(), fb, provider, 50, filepath.Join(dir, "checkpoints"), "file://results")

	err := svc.HandleTask(context.Background(), taskBody(t, taskPayload{
		JobID:          "job-3",
		SubtitlePath:   filepath.Join(dir, "missing.fr.srt"),
		SourceLanguage: "fr",
		TargetLanguage: "en",
	}))
	require.NoError(t, err)
	require.Contains(t, fb.eventTypes(), models.EventJobFailed)
}

func TestHandleTaskFailsOnMalformedLLMResponseRetainingCheckpoint(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "movie.fr.srt")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleSRT), 0o644))

	checkpointDir := filepath.Join(dir, "checkpoints")
	fb := &fakeBus{}
	provider := &llm.Fake{Responses: []string{`not json at all`}}
	svc := New(newFakeStore(), fb, provider, 50, checkpointDir, "file://results")

	err := svc.HandleTask(context.Background(), taskBody(t, taskPayload{
		JobID:          "job-4",
		SubtitlePath:   srcPath,
		SourceLanguage: "fr",
		TargetLanguage: "en",
	}))
	require.NoError(t, err)
	require.Contains(t, fb.eventTypes(), models.EventJobFailed)

	cpPath := subtitle.CheckpointPath(checkpointDir, "job-4", "en")
	_, statErr := os.Stat(cpPath)
	require.NoError(t, statErr, "checkpoint must survive a failed chunk for retry")
}

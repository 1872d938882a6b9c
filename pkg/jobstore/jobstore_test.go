package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/subtitlebus/pkg/config"
	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.RedisConfig{
		DoneTTL:     24 * time.Hour,
		FailedTTL:   time.Hour,
		DedupWindow: 30 * time.Minute,
	}
	return NewFromRedis(rdb, cfg)
}

func TestSaveAndGetJob(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	job := &models.Job{
		ID:        "job-1",
		VideoURL:  "/m/a.mp4",
		Language:  "en",
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, c.SaveJob(ctx, job))

	got, err := c.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, job.VideoURL, got.VideoURL)
	require.Equal(t, models.StatusPending, got.Status)
}

func TestGetJobNotFound(t *testing.T) {
	c := newTestClient(t)
	_, err := c.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateJobStatusFollowsStateMachine(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	job := &models.Job{ID: "job-2", Status: models.StatusPending, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, c.SaveJob(ctx, job))

	updated, err := c.UpdateJobStatus(ctx, "job-2", models.StatusDownloadQueued, "", "", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, models.StatusDownloadQueued, updated.Status)

	// Regression to PENDING is not a valid transition: the projector treats it
	// as a no-op, not an error.
	unchanged, err := c.UpdateJobStatus(ctx, "job-2", models.StatusPending, "", "", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, models.StatusDownloadQueued, unchanged.Status)
}

func TestListJobsFiltersByStatusAndExcludesEventKeys(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SaveJob(ctx, &models.Job{ID: "a", Status: models.StatusPending, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}))
	require.NoError(t, c.SaveJob(ctx, &models.Job{ID: "b", Status: models.StatusDone, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}))
	require.NoError(t, c.RecordEvent(ctx, "a", models.Event{EventType: models.EventSubtitleRequested, JobID: "a"}))

	all, err := c.ListJobs(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	pending, err := c.ListJobs(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "a", pending[0].ID)
}

func TestEventLogIsMostRecentFirstAndAppendOnly(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.RecordEvent(ctx, "job-3", models.Event{EventType: models.EventSubtitleRequested, JobID: "job-3"}))
	require.NoError(t, c.RecordEvent(ctx, "job-3", models.Event{EventType: models.EventSubtitleReady, JobID: "job-3"}))
	// Duplicate delivery of the same event is acceptable and just appends again.
	require.NoError(t, c.RecordEvent(ctx, "job-3", models.Event{EventType: models.EventSubtitleReady, JobID: "job-3"}))

	events, err := c.GetEvents(ctx, "job-3")
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, models.EventSubtitleReady, events[0].EventType)
	require.Equal(t, models.EventSubtitleRequested, events[2].EventType)
}

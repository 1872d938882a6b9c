package jobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckAndRegisterFirstCallerIsOriginal(t *testing.T) {
	c := newTestClient(t)
	res := c.CheckAndRegister(context.Background(), "/m/a.mp4", "en", "job-1")
	require.False(t, res.IsDuplicate)
}

func TestCheckAndRegisterSecondCallerIsDuplicate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first := c.CheckAndRegister(ctx, "/m/a.mp4", "en", "job-1")
	require.False(t, first.IsDuplicate)

	second := c.CheckAndRegister(ctx, "/m/a.mp4", "en", "job-2")
	require.True(t, second.IsDuplicate)
	require.Equal(t, "job-1", second.ExistingJobID)
}

func TestCheckAndRegisterSameCandidateIsNotADuplicate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first := c.CheckAndRegister(ctx, "/m/a.mp4", "en", "job-1")
	require.False(t, first.IsDuplicate)

	// Manager re-registering the same job id the scanner already registered:
	// this is the same job, not a collision.
	again := c.CheckAndRegister(ctx, "/m/a.mp4", "en", "job-1")
	require.False(t, again.IsDuplicate)
	require.Equal(t, "job-1", again.ExistingJobID)
}

func TestCheckAndRegisterIsScopedPerLanguage(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	en := c.CheckAndRegister(ctx, "/m/a.mp4", "en", "job-en")
	require.False(t, en.IsDuplicate)

	he := c.CheckAndRegister(ctx, "/m/a.mp4", "he", "job-he")
	require.False(t, he.IsDuplicate)
}

func TestCheckAndRegisterOverwritesMalformedValue(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	key := dedupKey("/m/a.mp4", "en")
	require.NoError(t, c.rdb.Set(ctx, key, "", 0).Err())

	res := c.CheckAndRegister(ctx, "/m/a.mp4", "en", "job-1")
	require.False(t, res.IsDuplicate)

	id, ok, err := c.GetExistingJobID(ctx, "/m/a.mp4", "en")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "job-1", id)
}

package scanner

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsVideoFile(t *testing.T) {
	require.True(t, isVideoFile("/media/movie.mp4"))
	require.True(t, isVideoFile("/media/MOVIE.MKV"))
	require.False(t, isVideoFile("/media/movie.srt"))
	require.False(t, isVideoFile("/media/movie.txt"))
}

func TestStabilityCheckerDeclaresStableAfterConsecutiveIdenticalReads(t *testing.T) {
	sc := newStabilityChecker(200 * time.Millisecond)

	var calls int32
	stable := sc.WaitStable("/media/movie.mp4", func(string) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return 1024, nil
	})

	require.True(t, stable)
	require.GreaterOrEqual(t, int(atomic.LoadInt32(&calls)), sc.requiredStableReads())
}

func TestStabilityCheckerGivesUpAtDeadlineWithChangingSize(t *testing.T) {
	sc := newStabilityChecker(200 * time.Millisecond)

	var size int64
	start := time.Now()
	stable := sc.WaitStable("/media/movie.mp4", func(string) (int64, error) {
		size += 100
		return size, nil
	})

	require.True(t, stable)
	require.GreaterOrEqual(t, time.Since(start), sc.window)
}

func TestStabilityCheckerNewerEventSupersedesOlderWaiter(t *testing.T) {
	sc := newStabilityChecker(500 * time.Millisecond)

	done := make(chan bool, 1)
	go func() {
		done <- sc.WaitStable("/media/movie.mp4", func(string) (int64, error) {
			return 1024, nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	second := sc.WaitStable("/media/movie.mp4", func(string) (int64, error) {
		return 2048, nil
	})
	require.True(t, second)

	first := <-done
	require.False(t, first)
}

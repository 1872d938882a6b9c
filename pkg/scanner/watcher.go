package scanner

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// videoExtensions are the file extensions the scanner treats as media.
var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".m4v": true, ".wmv": true, ".webm": true, ".ts": true,
}

// isVideoFile reports whether path names a file with a recognised
// video extension.
func isVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// stabilityChecker polls a file's size until it stops changing (the
// writer has finished, or we've waited long enough), per the
// debounce/stability algorithm: poll every 500ms, declare stable after
// N consecutive identical reads, give up and proceed anyway after
// 2x the debounce window.
type stabilityChecker struct {
	pollInterval time.Duration
	window       time.Duration

	mu      sync.Mutex
	waiters map[string]chan struct{}
}

func newStabilityChecker(window time.Duration) *stabilityChecker {
	return &stabilityChecker{
		pollInterval: 500 * time.Millisecond,
		window:       window,
		waiters:      map[string]chan struct{}{},
	}
}

// requiredStableReads is how many consecutive identical size polls
// count as "stable", derived from the debounce window and poll
// interval.
func (s *stabilityChecker) requiredStableReads() int {
	n := int(s.window / s.pollInterval)
	if n < 1 {
		n = 1
	}
	return n
}

// WaitStable blocks until path's size has been stable for the
// required number of consecutive polls, the timeout elapses, or a
// newer event for the same path supersedes this wait (in which case
// WaitStable returns false, and the caller should drop this
// occurrence in favor of the newer one). sizeOf is injected for
// testability.
func (s *stabilityChecker) WaitStable(path string, sizeOf func(string) (int64, error)) bool {
	cancel := make(chan struct{})

	s.mu.Lock()
	if prev, exists := s.waiters[path]; exists {
		close(prev)
	}
	s.waiters[path] = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.waiters[path] == cancel {
			delete(s.waiters, path)
		}
		s.mu.Unlock()
	}()

	deadline := time.Now().Add(2 * s.window)
	required := s.requiredStableReads()

	var lastSize int64 = -1
	consecutive := 0

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return false
		case <-ticker.C:
			size, err := sizeOf(path)
			if err != nil {
				// The file may have been removed mid-write; treat as
				// unstable and keep polling until the deadline.
				lastSize = -1
				consecutive = 0
			} else if size == lastSize {
				consecutive++
				if consecutive >= required {
					return true
				}
			} else {
				lastSize = size
				consecutive = 1
			}

			if time.Now().After(deadline) {
				return true
			}
		}
	}
}

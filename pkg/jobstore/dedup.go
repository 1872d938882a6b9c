package jobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkAndRegisterScript atomically implements "GET if exists; else SET with
// TTL". Returns the existing value if the key is already set (duplicate),
// or the newly-set candidate value if the key was absent (original).
var checkAndRegisterScript = redis.NewScript(`
local existing = redis.call("GET", KEYS[1])
if existing then
	return existing
end
redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[2])
return ARGV[1]
`)

// DedupResult is the outcome of a duplicate-suppression check.
type DedupResult struct {
	IsDuplicate    bool
	ExistingJobID  string
	DegradedReason string // non-empty if the store was unavailable and we degraded gracefully
}

func dedupKey(videoURL, language string) string {
	sum := sha256.Sum256([]byte(videoURL))
	return "dedup:" + hex.EncodeToString(sum[:]) + ":" + language
}

// CheckAndRegister implements the atomic check-and-register protocol of the
// duplicate-suppression design: it registers candidateJobID as the owner of
// (videoURL, language) if nobody else holds that slot yet, or reports the
// existing owner if somebody does.
//
// On Redis unavailability this degrades to "not a duplicate" rather than
// stalling the pipeline; the caller proceeds as if it were original and a
// warning is logged.
func (c *Client) CheckAndRegister(ctx context.Context, videoURL, language, candidateJobID string) DedupResult {
	key := dedupKey(videoURL, language)

	val, err := checkAndRegisterScript.Run(ctx, c.rdb, []string{key}, candidateJobID, c.dedupTTL).Result()
	if err != nil {
		if isScriptNotLoaded(err) {
			return c.checkAndRegisterFallback(ctx, key, candidateJobID)
		}
		slog.Warn("dedup store unavailable, degrading to not-a-duplicate", "error", err)
		return DedupResult{IsDuplicate: false, DegradedReason: err.Error()}
	}

	existing, ok := val.(string)
	if !ok || existing == "" {
		// Malformed stored value: self-correct by overwriting with the candidate.
		c.rdb.Set(ctx, key, candidateJobID, time.Duration(c.dedupTTL)*time.Second)
		return DedupResult{IsDuplicate: false}
	}
	if existing == candidateJobID {
		return DedupResult{IsDuplicate: false, ExistingJobID: existing}
	}
	return DedupResult{IsDuplicate: true, ExistingJobID: existing}
}

// checkAndRegisterFallback performs the same operation without EVALSHA when
// the server doesn't have the script cached (fresh miniredis instance, Redis
// restart that flushed its script cache, etc). Not atomic across the two
// round trips, but only matters for truly concurrent first-registration,
// which the dedup window already tolerates at a best-effort level.
func (c *Client) checkAndRegisterFallback(ctx context.Context, key, candidateJobID string) DedupResult {
	existing, err := c.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("dedup store unavailable, degrading to not-a-duplicate", "error", err)
		return DedupResult{IsDuplicate: false, DegradedReason: err.Error()}
	}
	if existing != "" {
		if existing == candidateJobID {
			return DedupResult{IsDuplicate: false, ExistingJobID: existing}
		}
		return DedupResult{IsDuplicate: true, ExistingJobID: existing}
	}
	if err := c.rdb.Set(ctx, key, candidateJobID, time.Duration(c.dedupTTL)*time.Second).Err(); err != nil {
		slog.Warn("dedup store unavailable, degrading to not-a-duplicate", "error", err)
		return DedupResult{IsDuplicate: false, DegradedReason: err.Error()}
	}
	return DedupResult{IsDuplicate: false}
}

// GetExistingJobID returns the job id currently registered for (videoURL,
// language), if any.
func (c *Client) GetExistingJobID(ctx context.Context, videoURL, language string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, dedupKey(videoURL, language)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func isScriptNotLoaded(err error) bool {
	return err != nil && len(err.Error()) >= 8 && err.Error()[:8] == "NOSCRIPT"
}

package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

// ErrNotFound is returned when a job id has no record in the store.
var ErrNotFound = errors.New("jobstore: job not found")

// ttlFor returns the expiry for a job in the given status. 0 means "no
// expiry" (Set with a zero expiration stores the key without a TTL).
func (c *Client) ttlFor(status models.Status) time.Duration {
	switch status {
	case models.StatusDone:
		return time.Duration(c.doneTTL) * time.Second
	case models.StatusFailed, models.StatusSubtitleMissing:
		return time.Duration(c.failedTTL) * time.Second
	default:
		return 0
	}
}

// SaveJob persists job, applying the TTL policy for its current status.
func (c *Client) SaveJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobstore: marshal job: %w", err)
	}
	if err := c.rdb.Set(ctx, jobKey(job.ID), data, c.ttlFor(job.Status)).Err(); err != nil {
		return fmt.Errorf("jobstore: save job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob loads a job by id. Returns ErrNotFound if it doesn't exist (or has
// expired).
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	data, err := c.rdb.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: get job %s: %w", id, err)
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("jobstore: decode job %s: %w", id, err)
	}
	return &job, nil
}

// UpdateJobStatus loads the job, applies the state-machine-checked status
// transition, and saves it back. Unknown/out-of-order transitions are
// ignored (not an error) per the projector's idempotence contract: the
// stored job is returned unchanged in that case.
func (c *Client) UpdateJobStatus(ctx context.Context, id string, newStatus models.Status, errMsg, resultURL string, now time.Time) (*models.Job, error) {
	job, err := c.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(job.Status, newStatus) {
		return job, nil
	}

	job.Status = newStatus
	if errMsg != "" {
		job.ErrorMessage = errMsg
	}
	if resultURL != "" {
		job.ResultURL = resultURL
	}
	job.Touch(now)

	if err := c.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs scans all job records, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, status models.Status) ([]*models.Job, error) {
	var jobs []*models.Job
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, "job:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("jobstore: scan jobs: %w", err)
		}
		for _, key := range keys {
			// Job record keys are "job:<id>" (one colon); event-log keys are
			// "job:events:<id>" (two colons) and must be excluded here.
			if strings.Count(key, ":") != 1 {
				continue
			}
			data, err := c.rdb.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue // expired between SCAN and GET
			}
			if err != nil {
				return nil, fmt.Errorf("jobstore: get %s during scan: %w", key, err)
			}
			var job models.Job
			if err := json.Unmarshal(data, &job); err != nil {
				return nil, fmt.Errorf("jobstore: decode %s during scan: %w", key, err)
			}
			if status == "" || job.Status == status {
				jobs = append(jobs, &job)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return jobs, nil
}

// DeleteJob removes a job record. It does not remove the event log.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	if err := c.rdb.Del(ctx, jobKey(id)).Err(); err != nil {
		return fmt.Errorf("jobstore: delete job %s: %w", id, err)
	}
	return nil
}

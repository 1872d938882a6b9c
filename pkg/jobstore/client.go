// Package jobstore implements the Redis-backed job record store: job
// persistence, the per-job event log, and status-dependent TTL policy. It is
// the single source of truth for a job's current status while the job is
// live.
package jobstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/subtitlebus/pkg/config"
)

// Client wraps a Redis connection and the TTL policy used across the job
// store, the event log, and duplicate suppression.
type Client struct {
	rdb       *redis.Client
	doneTTL   int64 // seconds
	failedTTL int64 // seconds
	dedupTTL  int64 // seconds
}

// New creates a job store client from cfg and verifies connectivity with a
// PING.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("jobstore: ping redis: %w", err)
	}

	return &Client{
		rdb:       rdb,
		doneTTL:   int64(cfg.DoneTTL.Seconds()),
		failedTTL: int64(cfg.FailedTTL.Seconds()),
		dedupTTL:  int64(cfg.DedupWindow.Seconds()),
	}, nil
}

// NewFromRedis wraps an existing redis.Client, for tests that drive a
// miniredis instance directly.
func NewFromRedis(rdb *redis.Client, cfg config.RedisConfig) *Client {
	return &Client{
		rdb:       rdb,
		doneTTL:   int64(cfg.DoneTTL.Seconds()),
		failedTTL: int64(cfg.FailedTTL.Seconds()),
		dedupTTL:  int64(cfg.DedupWindow.Seconds()),
	}
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health reports whether the store is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func jobKey(id string) string       { return "job:" + id }
func jobEventsKey(id string) string { return "job:events:" + id }

package jobstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

// RecordEvent appends ev to job id's event log. The log is append-only: the
// same event recorded twice (redelivery) simply produces a duplicate entry,
// which is the documented idempotence behaviour of the projector.
func (c *Client) RecordEvent(ctx context.Context, id string, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("jobstore: marshal event for %s: %w", id, err)
	}
	key := jobEventsKey(id)
	if err := c.rdb.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("jobstore: record event for %s: %w", id, err)
	}
	// Event log TTL tracks the job's own retention window; use the longer of
	// the two terminal TTLs so a log never outlives its job by much but also
	// never expires before a FAILED job's own TTL does.
	ttl := c.ttlFor(models.StatusDone)
	if failed := c.ttlFor(models.StatusFailed); failed > ttl {
		ttl = failed
	}
	if ttl > 0 {
		c.rdb.Expire(ctx, key, ttl)
	}
	return nil
}

// GetEvents returns job id's event log, most-recent-first.
func (c *Client) GetEvents(ctx context.Context, id string) ([]models.Event, error) {
	raw, err := c.rdb.LRange(ctx, jobEventsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("jobstore: get events for %s: %w", id, err)
	}
	events := make([]models.Event, 0, len(raw))
	for _, item := range raw {
		var ev models.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("jobstore: decode event for %s: %w", id, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.13-management-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)

	b, err := Connect(ctx, Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	return b
}

func TestPublishEventIsDeliveredToBoundQueue(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	pub, err := NewPublisher(b)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	consumer := NewConsumer(b, QueueSpec{
		Name:     "test.requested",
		Bindings: []string{"subtitle.requested"},
	})

	received := make(chan models.Event, 1)
	consumer.Start(ctx, func(ctx context.Context, body []byte) error {
		var ev models.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return err
		}
		received <- ev
		return nil
	})
	t.Cleanup(consumer.Stop)

	require.Eventually(t, func() bool {
		connected, _ := consumer.Healthy()
		return connected
	}, 10*time.Second, 100*time.Millisecond)

	ev := models.Event{
		EventType: models.EventSubtitleRequested,
		JobID:     "job-1",
		Timestamp: time.Now().UTC(),
		Source:    "scanner",
		Payload:   map[string]any{"video_url": "/media/movie.mp4"},
	}
	require.NoError(t, pub.PublishEvent(ctx, ev))

	select {
	case got := <-received:
		require.Equal(t, ev.JobID, got.JobID)
		require.Equal(t, ev.EventType, got.EventType)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestPublishTaskGoesDirectlyToNamedQueue(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	pub, err := NewPublisher(b)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	consumer := NewConsumer(b, QueueSpec{Name: DownloadQueue})

	received := make(chan models.Event, 1)
	consumer.Start(ctx, func(ctx context.Context, body []byte) error {
		var ev models.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return err
		}
		received <- ev
		return nil
	})
	t.Cleanup(consumer.Stop)

	require.Eventually(t, func() bool {
		connected, _ := consumer.Healthy()
		return connected
	}, 10*time.Second, 100*time.Millisecond)

	body, err := encodeEvent(models.Event{
		EventType: models.EventSubtitleDownloadRequested,
		JobID:     "job-2",
		Timestamp: time.Now().UTC(),
		Source:    "manager",
	})
	require.NoError(t, err)
	require.NoError(t, pub.PublishTask(ctx, DownloadQueue, body))

	select {
	case got := <-received:
		require.Equal(t, "job-2", got.JobID)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for task delivery")
	}
}

func TestHandlerErrorLeavesMessageForRedelivery(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	pub, err := NewPublisher(b)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	attempts := make(chan int, 5)
	n := 0

	consumer := NewConsumer(b, QueueSpec{
		Name:     "test.redelivery",
		Bindings: []string{"subtitle.requested"},
	})
	consumer.Start(ctx, func(ctx context.Context, body []byte) error {
		n++
		attempts <- n
		if n < 2 {
			return context.DeadlineExceeded
		}
		return nil
	})
	t.Cleanup(consumer.Stop)

	require.Eventually(t, func() bool {
		connected, _ := consumer.Healthy()
		return connected
	}, 10*time.Second, 100*time.Millisecond)

	require.NoError(t, pub.PublishEvent(ctx, models.Event{
		EventType: models.EventSubtitleRequested,
		JobID:     "job-3",
		Timestamp: time.Now().UTC(),
		Source:    "scanner",
	}))

	require.Eventually(t, func() bool {
		return len(attempts) >= 2
	}, 15*time.Second, 100*time.Millisecond)
}

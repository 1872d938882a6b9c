package bus

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one message body. Task queues (download,
// translation) carry a schema specific to that queue; the shared
// topic exchange carries a models.Event envelope — either way,
// decoding is the caller's job, not the transport's. A non-nil error
// leaves the delivery unacknowledged so the broker redelivers it.
type Handler func(ctx context.Context, body []byte) error

// QueueSpec describes how a consumer's queue is declared and bound.
type QueueSpec struct {
	Name       string
	RoutingKey string   // used for direct-routed task queues (default exchange)
	Bindings   []string // topic patterns bound against the shared exchange; empty for direct routing
}

// Consumer runs one subscription loop against a single durable queue,
// reconnecting with backoff on failure. Prefetch is always 1: one
// message in flight per worker, matching the fair-dispatch contract
// every service relies on.
type Consumer struct {
	bus  *Bus
	spec QueueSpec

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.Mutex
	connected bool
	lastMsgAt time.Time
}

// NewConsumer prepares (but does not yet start) a consumer for spec.
func NewConsumer(b *Bus, spec QueueSpec) *Consumer {
	return &Consumer{
		bus:    b,
		spec:   spec,
		stopCh: make(chan struct{}),
	}
}

// Start launches the subscription loop in the background. Call Stop to
// shut it down; in-flight handlers are allowed to finish first.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, handler)
	}()
}

// Stop signals the subscription loop to exit and waits for it.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// Healthy reports connection state and time since the last delivery,
// for the /health/consumer surface.
func (c *Consumer) Healthy() (connected bool, lastMessageAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected, c.lastMsgAt
}

func (c *Consumer) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Consumer) touch() {
	c.mu.Lock()
	c.lastMsgAt = time.Now()
	c.mu.Unlock()
}

func (c *Consumer) run(ctx context.Context, handler Handler) {
	wait := c.bus.minBackoff
	consecutiveFailures := 0

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		_, lastBefore := c.Healthy()
		if err := c.subscribeAndDrain(ctx, handler); err != nil {
			if _, lastAfter := c.Healthy(); lastAfter.After(lastBefore) {
				// A message arrived on this subscription: start the backoff over.
				consecutiveFailures = 0
				wait = c.bus.minBackoff
			}
			consecutiveFailures++
			c.setConnected(false)
			slog.Warn("bus consumer loop exited, reconnecting",
				"queue", c.spec.Name, "error", err, "attempt", consecutiveFailures, "retry_in", wait)

			jitter := time.Duration(rand.Int63n(int64(wait) / 4))
			select {
			case <-time.After(wait + jitter):
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}

			wait *= 2
			if wait > c.bus.maxBackoff {
				wait = c.bus.maxBackoff
			}
			continue
		}

		// subscribeAndDrain only returns nil when asked to stop.
		return
	}
}

// subscribeAndDrain declares the queue, binds it, and consumes until
// the channel errors out or a stop is requested. On a clean stop it
// returns nil; any other exit path returns a non-nil error so run()
// backs off and retries.
func (c *Consumer) subscribeAndDrain(ctx context.Context, handler Handler) error {
	c.bus.mu.Lock()
	conn := c.bus.conn
	c.bus.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		if err := c.bus.reconnectLoop(ctx); err != nil {
			return err
		}
		c.bus.mu.Lock()
		conn = c.bus.conn
		c.bus.mu.Unlock()
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("bus: open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("bus: set prefetch: %w", err)
	}

	if _, err := ch.QueueDeclare(c.spec.Name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("bus: declare queue %q: %w", c.spec.Name, err)
	}

	if len(c.spec.Bindings) > 0 {
		for _, pattern := range c.spec.Bindings {
			if err := ch.QueueBind(c.spec.Name, pattern, exchangeName, false, nil); err != nil {
				return fmt.Errorf("bus: bind queue %q to %q: %w", c.spec.Name, pattern, err)
			}
		}
	}

	deliveries, err := ch.Consume(c.spec.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("bus: consume %q: %w", c.spec.Name, err)
	}

	c.setConnected(true)
	closedCh := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-c.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closedCh:
			if !ok {
				return fmt.Errorf("bus: channel closed")
			}
			return fmt.Errorf("bus: channel closed: %w", amqpErr)
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("bus: delivery channel closed")
			}
			c.touch()
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery, handler Handler) {
	if err := handler(ctx, delivery.Body); err != nil {
		slog.Warn("bus: handler failed, message will be redelivered",
			"queue", c.spec.Name, "error", err)
		_ = delivery.Nack(false, true)
		return
	}

	_ = delivery.Ack(false)
}

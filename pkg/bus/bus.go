// Package bus wraps the AMQP 0-9-1 topic exchange that every service
// communicates over: a single durable exchange ("subtitle.events"),
// JSON message bodies, publisher confirms, and a connect-declare-
// subscribe-drain-backoff reconnect contract for long-lived consumers.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

const exchangeName = "subtitle.events"

// Bus owns a single AMQP connection and exposes publish/consume on top
// of it. One Bus per process; callers open additional channels for
// independent publisher/consumer roles via Channel.
type Bus struct {
	url string

	mu      sync.Mutex
	conn    *amqp.Connection
	closed  bool
	closeCh chan struct{}

	minBackoff time.Duration
	maxBackoff time.Duration
}

// Config bundles the dial parameters a Bus needs.
type Config struct {
	URL              string
	ReconnectMinWait time.Duration
	ReconnectMaxWait time.Duration
}

// Connect dials the broker and declares the shared topic exchange.
func Connect(ctx context.Context, cfg Config) (*Bus, error) {
	b := &Bus{
		url:        cfg.URL,
		closeCh:    make(chan struct{}),
		minBackoff: cfg.ReconnectMinWait,
		maxBackoff: cfg.ReconnectMaxWait,
	}
	if b.minBackoff <= 0 {
		b.minBackoff = 3 * time.Second
	}
	if b.maxBackoff <= 0 {
		b.maxBackoff = 30 * time.Second
	}

	if err := b.dial(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bus) dial(ctx context.Context) error {
	conn, err := amqp.DialConfig(b.url, amqp.Config{})
	if err != nil {
		return fmt.Errorf("bus: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("bus: open declare channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("bus: declare exchange: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	slog.Info("bus connected", "exchange", exchangeName)
	return nil
}

// Close shuts the connection down. Calls after the first return nil.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.closeCh)
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// Health reports whether the underlying connection is currently open.
func (b *Bus) Health() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("bus: connection is closed")
	}
	return nil
}

// reconnectLoop blocks until dial succeeds or the bus is closed,
// backing off from minBackoff to maxBackoff between attempts.
func (b *Bus) reconnectLoop(ctx context.Context) error {
	wait := b.minBackoff
	for {
		select {
		case <-b.closeCh:
			return fmt.Errorf("bus: closed during reconnect")
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := b.dial(ctx); err == nil {
			return nil
		} else {
			slog.Warn("bus reconnect attempt failed", "error", err, "retry_in", wait)
		}

		select {
		case <-time.After(wait):
		case <-b.closeCh:
			return fmt.Errorf("bus: closed during reconnect")
		case <-ctx.Done():
			return ctx.Err()
		}

		wait *= 2
		if wait > b.maxBackoff {
			wait = b.maxBackoff
		}
	}
}

func encodeEvent(ev models.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("bus: marshal event: %w", err)
	}
	return body, nil
}

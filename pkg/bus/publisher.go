package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/codeready-toolchain/subtitlebus/pkg/models"
)

// Publisher owns one confirm-mode channel and publishes events to the
// shared topic exchange, plus task messages directly to a named queue
// via the default exchange (routing key equal to the queue name).
type Publisher struct {
	bus *Bus

	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher opens a dedicated confirm-mode channel for publishing.
func NewPublisher(b *Bus) (*Publisher, error) {
	p := &Publisher{bus: b}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) openChannel() error {
	p.bus.mu.Lock()
	conn := p.bus.conn
	p.bus.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return fmt.Errorf("bus: no open connection")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("bus: open publisher channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return fmt.Errorf("bus: enable confirms: %w", err)
	}

	p.mu.Lock()
	p.ch = ch
	p.mu.Unlock()
	return nil
}

// PublishEvent publishes ev to the topic exchange with a routing key
// equal to its event type, as a persistent message, and waits for
// broker confirmation.
func (p *Publisher) PublishEvent(ctx context.Context, ev models.Event) error {
	body, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return p.publish(ctx, exchangeName, string(ev.EventType), body)
}

// PublishTask publishes an arbitrary JSON task body directly to queue
// (default exchange, routing key == queue name) as a persistent
// message, used for the direct-routed download/translation queues.
func (p *Publisher) PublishTask(ctx context.Context, queue string, body []byte) error {
	return p.publish(ctx, "", queue, body)
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("bus: publisher channel not open")
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("bus: publish to %q: %w", routingKey, err)
	}
	if confirmation == nil {
		return nil
	}
	ok, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("bus: wait for confirm on %q: %w", routingKey, err)
	}
	if !ok {
		return fmt.Errorf("bus: broker nacked publish to %q", routingKey)
	}
	return nil
}

// Close closes the publisher's channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}

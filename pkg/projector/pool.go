package projector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
)

// projectorQueue is the durable queue name the status projector binds to
// bus.ConsumerBindings under.
const projectorQueue = "subtitle.projector"

// Runner owns the projector's subscription loop and a watchdog that
// forces a fresh subscription when deliveries go quiet for too long even
// though the underlying connection still reports itself open — a wedged
// channel that never raises an error on its own.
type Runner struct {
	bus     *bus.Bus
	maxIdle time.Duration

	mu       sync.Mutex
	consumer *bus.Consumer
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRunner builds a Runner. maxIdle is the inactivity window past which
// a nominally-connected subscription is torn down and restarted; it
// defaults to 2 minutes.
func NewRunner(b *bus.Bus, maxIdle time.Duration) *Runner {
	if maxIdle <= 0 {
		maxIdle = 2 * time.Minute
	}
	return &Runner{bus: b, maxIdle: maxIdle, stopCh: make(chan struct{})}
}

// Start launches the subscription loop and its watchdog.
func (r *Runner) Start(ctx context.Context, svc *Service) {
	r.mu.Lock()
	r.consumer = r.newConsumer()
	r.consumer.Start(ctx, svc.HandleEvent)
	r.mu.Unlock()

	go r.watch(ctx, svc)
}

func (r *Runner) newConsumer() *bus.Consumer {
	return bus.NewConsumer(r.bus, bus.QueueSpec{Name: projectorQueue, Bindings: bus.ConsumerBindings})
}

func (r *Runner) watch(ctx context.Context, svc *Service) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.checkHealth(ctx, svc)
		}
	}
}

// checkHealth restarts the subscription only when it is connected yet
// has received nothing for longer than maxIdle. A disconnected consumer
// is left alone: bus.Consumer already backs off and reconnects on its
// own, and restarting on top of that would just race it.
func (r *Runner) checkHealth(ctx context.Context, svc *Service) {
	r.mu.Lock()
	c := r.consumer
	r.mu.Unlock()
	if c == nil {
		return
	}

	connected, lastMsgAt := c.Healthy()
	if !connected || lastMsgAt.IsZero() {
		return
	}
	if time.Since(lastMsgAt) < r.maxIdle {
		return
	}

	slog.Warn("projector: subscription idle past threshold, forcing restart",
		"idle_for", time.Since(lastMsgAt))
	c.Stop()

	r.mu.Lock()
	r.consumer = r.newConsumer()
	r.consumer.Start(ctx, svc.HandleEvent)
	r.mu.Unlock()
}

// Stop shuts the subscription and watchdog down.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.mu.Lock()
	c := r.consumer
	r.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// Healthy reports the current subscription's connection state.
func (r *Runner) Healthy() (connected bool, lastMessageAt time.Time) {
	r.mu.Lock()
	c := r.consumer
	r.mu.Unlock()
	if c == nil {
		return false, time.Time{}
	}
	return c.Healthy()
}

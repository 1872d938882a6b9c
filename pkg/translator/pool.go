package translator

import (
	"context"
	"sync"
	"time"

	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
)

// Pool runs a small fixed set of independent consumers against the
// translation queue, mirroring the downloader's worker pool shape.
type Pool struct {
	consumers []*bus.Consumer
}

// NewPool builds a pool of size workers against b, all bound to the
// translation queue.
func NewPool(b *bus.Bus, size int) *Pool {
	if size < 1 {
		size = 1
	}
	consumers := make([]*bus.Consumer, size)
	for i := range consumers {
		consumers[i] = bus.NewConsumer(b, bus.QueueSpec{Name: bus.TranslationQueue})
	}
	return &Pool{consumers: consumers}
}

// Start launches every worker's subscription loop against svc.HandleTask.
func (p *Pool) Start(ctx context.Context, svc *Service) {
	for _, c := range p.consumers {
		c.Start(ctx, svc.HandleTask)
	}
}

// Stop shuts every worker down, waiting for in-flight handlers to finish.
func (p *Pool) Stop() {
	var wg sync.WaitGroup
	for _, c := range p.consumers {
		wg.Add(1)
		go func(c *bus.Consumer) {
			defer wg.Done()
			c.Stop()
		}(c)
	}
	wg.Wait()
}

// WorkerHealth is the health snapshot of a single translation worker.
type WorkerHealth struct {
	Connected     bool      `json:"connected"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// Health reports the per-worker connection state.
func (p *Pool) Health() []WorkerHealth {
	out := make([]WorkerHealth, len(p.consumers))
	for i, c := range p.consumers {
		connected, lastMsgAt := c.Healthy()
		out[i] = WorkerHealth{Connected: connected, LastMessageAt: lastMsgAt}
	}
	return out
}

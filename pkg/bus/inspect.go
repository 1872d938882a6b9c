package bus

import "fmt"

// QueueDepth reports the number of ready messages sitting in queue,
// via a passive queue declaration (fails if the queue doesn't exist
// yet rather than creating it).
func (b *Bus) QueueDepth(queue string) (int, error) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return 0, fmt.Errorf("bus: no open connection")
	}

	ch, err := conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("bus: open inspect channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclarePassive(queue, true, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("bus: inspect queue %q: %w", queue, err)
	}
	return q.Messages, nil
}

package events

import (
	"context"
	"sync"

	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// MemoryBus is an in-process Bus. A subscriber that falls behind loses events
// rather than blocking publishers.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[int]chan Event
	nextID int
	buffer int
	logger *logging.Logger
}

func NewMemoryBus(buffer int, logger *logging.Logger) *MemoryBus {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MemoryBus{
		subs:   make(map[Topic]map[int]chan Event),
		buffer: buffer,
		logger: logger,
	}
}

func (b *MemoryBus) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs[evt.Topic] {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("event dropped for slow subscriber", "topic", evt.Topic, "subscriber", id, "event_id", evt.ID)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(topics ...Topic) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = make(map[int]chan Event)
		}
		b.subs[topic][id] = ch
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			for _, topic := range topics {
				delete(b.subs[topic], id)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

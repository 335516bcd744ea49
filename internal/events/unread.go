package events

import (
	"context"
	"sync"

	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// UnreadCounts is what the app badges show.
type UnreadCounts struct {
	Activity int `json:"activity"`
	Messages int `json:"messages"`
}

// UnreadCounter keeps per-user unread badges from bus events.
type UnreadCounter struct {
	bus    Bus
	logger *logging.Logger

	mu     sync.RWMutex
	counts map[string]UnreadCounts
}

func NewUnreadCounter(bus Bus, logger *logging.Logger) *UnreadCounter {
	if logger == nil {
		logger = logging.Default()
	}
	return &UnreadCounter{
		bus:    bus,
		logger: logger,
		counts: make(map[string]UnreadCounts),
	}
}

// Run consumes events until ctx is done or the subscription closes.
func (c *UnreadCounter) Run(ctx context.Context) {
	if c.bus == nil {
		return
	}
	ch, cancel := c.bus.Subscribe(TopicSupportReply, TopicBookingUpdate, TopicMessagesRead, TopicActivitySeen)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				c.logger.Warn("unread counter subscription closed")
				return
			}
			c.Apply(evt)
		}
	}
}

// Apply folds one event into the counts.
func (c *UnreadCounter) Apply(evt Event) {
	if evt.UserID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := c.counts[evt.UserID]
	switch evt.Topic {
	case TopicSupportReply:
		counts.Messages++
	case TopicBookingUpdate:
		counts.Activity++
	case TopicMessagesRead:
		counts.Messages = 0
	case TopicActivitySeen:
		counts.Activity = 0
	default:
		return
	}
	c.counts[evt.UserID] = counts
}

func (c *UnreadCounter) Counts(userID string) UnreadCounts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[userID]
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

const redisChannelPrefix = "photka:events:"

// RedisBus publishes events over Redis Pub/Sub so every API replica sees them.
type RedisBus struct {
	client *redis.Client
	buffer int
	logger *logging.Logger
	tracer trace.Tracer
}

func NewRedisBus(client *redis.Client, logger *logging.Logger) *RedisBus {
	if client == nil {
		panic("events: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisBus{
		client: client,
		buffer: 64,
		logger: logger,
		tracer: otel.Tracer("photka.internal.events"),
	}
}

func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	ctx, span := b.tracer.Start(ctx, "events.publish", trace.WithAttributes(attribute.String("events.topic", string(evt.Topic))))
	defer span.End()

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, redisChannel(evt.Topic), data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("events: publish %s: %w", evt.Topic, err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning. If Redis
// is unreachable the returned channel is already closed.
func (b *RedisBus) Subscribe(topics ...Topic) (<-chan Event, func()) {
	out := make(chan Event, b.buffer)
	channels := make([]string, 0, len(topics))
	for _, topic := range topics {
		channels = append(channels, redisChannel(topic))
	}

	ctx := context.Background()
	ps := b.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		b.logger.Error("redis event subscription failed", "error", err, "channels", channels)
		_ = ps.Close()
		close(out)
		return out, func() {}
	}

	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn("dropping malformed event", "error", err, "channel", msg.Channel)
				continue
			}
			select {
			case out <- evt:
			default:
				b.logger.Warn("event dropped for slow subscriber", "topic", evt.Topic, "event_id", evt.ID)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := ps.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
				b.logger.Warn("redis event unsubscribe failed", "error", err)
			}
		})
	}
	return out, cancel
}

func redisChannel(topic Topic) string {
	return redisChannelPrefix + string(topic)
}

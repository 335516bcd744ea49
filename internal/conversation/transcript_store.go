package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/photka-support-ai/internal/chat"
)

const (
	transcriptKeyPrefix = "support_transcript:"
	transcriptTTL       = 7 * 24 * time.Hour
)

// TranscriptStore keeps a copy of every support turn for operator review.
type TranscriptStore interface {
	Append(ctx context.Context, conversationID string, msg chat.Message) error
}

// RedisTranscriptStore stores transcripts as capped Redis lists.
type RedisTranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
	ttl         time.Duration
}

// NewRedisTranscriptStore returns nil when redisClient is nil.
func NewRedisTranscriptStore(redisClient *redis.Client, maxMessages int) *RedisTranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &RedisTranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("photka.internal.conversation.transcript"),
		maxMessages: int64(maxMessages),
		ttl:         transcriptTTL,
	}
}

func (s *RedisTranscriptStore) Append(ctx context.Context, conversationID string, msg chat.Message) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if conversationID == "" {
		return errors.New("conversation: transcript conversationID required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.append")
	defer span.End()

	key := transcriptKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append transcript message: %w", err)
	}
	return nil
}

// List returns the last limit messages, oldest first. limit <= 0 returns everything kept.
func (s *RedisTranscriptStore) List(ctx context.Context, conversationID string, limit int64) ([]chat.Message, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if conversationID == "" {
		return nil, errors.New("conversation: transcript conversationID required")
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}

	raw, err := s.redis.LRange(ctx, transcriptKey(conversationID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []chat.Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}

	out := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(conversationID string) string {
	return transcriptKeyPrefix + conversationID
}

// Package events carries cross-feature notifications (support replies, booking
// updates, read receipts) so counters and realtime sockets do not depend on the
// features that produce them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic names a stream of events.
type Topic string

const (
	TopicSupportReply  Topic = "support.reply.v1"
	TopicBookingUpdate Topic = "booking.update.v1"
	TopicMessagesRead  Topic = "messages.read.v1"
	TopicActivitySeen  Topic = "activity.seen.v1"
)

// Event is a single notification addressed to a user.
type Event struct {
	ID        string          `json:"id"`
	Topic     Topic           `json:"topic"`
	UserID    string          `json:"user_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent marshals payload (which may be nil) into an event for userID.
func NewEvent(topic Topic, userID string, payload any) (Event, error) {
	evt := Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("events: marshal payload: %w", err)
		}
		evt.Payload = data
	}
	return evt, nil
}

// Bus fans events out to subscribers. Subscribe returns a receive channel that
// is closed by the returned cancel func.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(topics ...Topic) (<-chan Event, func())
}

type SupportReplyV1 struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Failed         bool      `json:"failed,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}

type BookingUpdateV1 struct {
	BookingID   string    `json:"booking_id"`
	SessionType string    `json:"session_type"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

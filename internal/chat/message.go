// Package chat models the support chat conversation log.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind marks locally generated turns that are never sent back to the model.
type Kind string

const (
	KindUser     Kind = ""
	KindGreeting Kind = "greeting"
	KindReply    Kind = "reply"
	KindError    Kind = "error"
)

// AssistantID is the synthetic sender identity used for support replies.
const AssistantID = "00000000-0000-0000-0000-000000000001"

// Message is one immutable chat turn.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Text           string    `json:"text"`
	Kind           Kind      `json:"kind,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsUser reports whether the message was written by the client.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// IsAssistant reports whether the message came from support.
func (m Message) IsAssistant() bool { return m.Role == RoleAssistant }

// LocalOnly reports whether the turn exists only in the UI (greeting, error notice).
func (m Message) LocalOnly() bool { return m.Kind == KindGreeting || m.Kind == KindError }

// NewLocalID builds an identifier for a turn that has not been persisted.
func NewLocalID(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

// SupportConversationID derives the support thread id from a user's account id.
// The same user always maps to the same thread.
func SupportConversationID(userID string) string {
	const width = 12
	id := strings.TrimSpace(userID)
	if len(id) > width {
		id = id[len(id)-width:]
	} else if len(id) < width {
		id = strings.Repeat("0", width-len(id)) + id
	}
	return "00000000-0000-0000-0000-" + id
}

// Package completion is the boundary to the hosted language model that writes
// support replies. Every provider implements Client; failures surface as *Error
// so callers can pick a safe end-user message without seeing upstream text.
package completion

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is a provider-neutral completion request. A negative Temperature
// leaves the provider default in place.
type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
}

type Response struct {
	Text       string
	Usage      Usage
	StopReason string
}

// Client produces one assistant reply for a conversation.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

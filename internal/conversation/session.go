// Package conversation runs the support chat: it owns each user's message log,
// sends turns to the completion client, and re-evaluates the booking gate after
// every assistant reply.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/completion"
	"github.com/wolfman30/photka-support-ai/internal/events"
	"github.com/wolfman30/photka-support-ai/internal/intent"
	"github.com/wolfman30/photka-support-ai/internal/observability/metrics"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// State is the send lifecycle of one chat session.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingCompletion State = "awaiting_completion"
	StateErrorDisplayed     State = "error_displayed"
)

const emptyReplyFallback = "i'm sorry, i couldn't process that. a human will respond soon."

var (
	ErrEmptyMessage = errors.New("conversation: message is empty")
	ErrSendInFlight = errors.New("conversation: a reply is already in progress")
)

// Options tunes the completion request built for every turn.
type Options struct {
	HistoryWindow int
	MaxTokens     int32
	Temperature   float32
	Model         string
}

// DefaultOptions mirrors the production request shape.
func DefaultOptions() Options {
	return Options{
		HistoryWindow: 10,
		MaxTokens:     400,
		Temperature:   0.85,
	}
}

// Turn is the outcome of one Submit.
type Turn struct {
	User     chat.Message    `json:"user"`
	Reply    chat.Message    `json:"reply"`
	Decision intent.Decision `json:"decision"`
	Failed   bool            `json:"failed"`
}

// Session is one open support chat. It is safe for concurrent use, but only
// one completion may be outstanding at a time.
type Session struct {
	userID         string
	conversationID string

	log        *chat.Log
	client     completion.Client
	gate       *intent.Gate
	opts       Options
	system     string
	transcript TranscriptStore
	bus        events.Bus
	metrics    *metrics.ChatMetrics
	logger     *logging.Logger
	now        func() time.Time

	mu    sync.Mutex
	state State
}

// Snapshot returns a copy of the conversation so far.
func (s *Session) Snapshot() []chat.Message {
	return s.log.Snapshot()
}

// State reports the current send state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the account that owns the session.
func (s *Session) UserID() string { return s.userID }

// ConversationID returns the support thread id.
func (s *Session) ConversationID() string { return s.conversationID }

// Decisions evaluates the gate under every assistant message, keyed by log index.
func (s *Session) Decisions() map[int]intent.Decision {
	return s.gate.EvaluateAll(s.log.Snapshot())
}

// Decide evaluates the gate at log index i.
func (s *Session) Decide(i int) intent.Decision {
	return s.gate.Evaluate(s.log.Snapshot(), i)
}

// Submit sends text to support and waits for the reply. Completion failures are
// not returned as errors: they become a single assistant error message in the
// log and Turn.Failed is set.
func (s *Session) Submit(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state == StateAwaitingCompletion {
		s.mu.Unlock()
		return Turn{}, ErrSendInFlight
	}
	s.state = StateAwaitingCompletion
	prior := s.log.Snapshot()
	userMsg := s.log.Append(chat.Message{
		ID:             chat.NewLocalID("user"),
		ConversationID: s.conversationID,
		Role:           chat.RoleUser,
		Text:           text,
		CreatedAt:      s.now(),
	})
	s.mu.Unlock()

	s.record(ctx, userMsg)

	reply, failed := s.complete(ctx, prior, text)

	s.mu.Lock()
	reply = s.log.Append(reply)
	snapshot := s.log.Snapshot()
	decision := s.gate.Evaluate(snapshot, len(snapshot)-1)
	if failed {
		s.state = StateErrorDisplayed
	} else {
		s.state = StateIdle
	}
	s.mu.Unlock()

	s.record(ctx, reply)
	s.metrics.ObserveGate(decision.Show, decision.Timing.String())
	s.publish(ctx, reply, failed)

	return Turn{User: userMsg, Reply: reply, Decision: decision, Failed: failed}, nil
}

func (s *Session) complete(ctx context.Context, prior []chat.Message, text string) (chat.Message, bool) {
	reply := chat.Message{
		ID:             chat.NewLocalID("assistant"),
		ConversationID: s.conversationID,
		Role:           chat.RoleAssistant,
	}

	resp, err := s.client.Complete(ctx, s.request(prior, text))
	reply.CreatedAt = s.now()
	if err != nil {
		s.logger.Error("support reply failed",
			"error", err,
			"code", string(completion.CodeOf(err)),
			"operator_message", completion.OperatorMessage(err),
		)
		reply.ID = chat.NewLocalID("error")
		reply.Kind = chat.KindError
		reply.Text = completion.UserMessage(err)
		return reply, true
	}

	reply.Kind = chat.KindReply
	reply.Text = strings.TrimSpace(resp.Text)
	if reply.Text == "" {
		s.logger.Warn("support reply was empty", "stop_reason", resp.StopReason)
		reply.Text = emptyReplyFallback
	}
	return reply, false
}

func (s *Session) request(prior []chat.Message, text string) completion.Request {
	history := chat.History(prior, s.opts.HistoryWindow)
	msgs := make([]completion.Message, 0, len(history)+1)
	for _, m := range history {
		role := completion.RoleUser
		if m.IsAssistant() {
			role = completion.RoleAssistant
		}
		msgs = append(msgs, completion.Message{Role: role, Content: m.Text})
	}
	msgs = append(msgs, completion.Message{Role: completion.RoleUser, Content: text})

	return completion.Request{
		Model:       s.opts.Model,
		System:      []string{s.system},
		Messages:    msgs,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	}
}

func (s *Session) record(ctx context.Context, msg chat.Message) {
	s.metrics.ObserveMessage(string(msg.Role))
	if s.transcript == nil {
		return
	}
	if err := s.transcript.Append(ctx, s.conversationID, msg); err != nil {
		s.logger.Warn("failed to append support transcript", "error", err, "message_id", msg.ID)
	}
}

func (s *Session) publish(ctx context.Context, reply chat.Message, failed bool) {
	if s.bus == nil {
		return
	}
	evt, err := events.NewEvent(events.TopicSupportReply, s.userID, events.SupportReplyV1{
		ConversationID: s.conversationID,
		MessageID:      reply.ID,
		Failed:         failed,
		SentAt:         reply.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("failed to build support reply event", "error", err)
		return
	}
	if err := s.bus.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.Warn("failed to publish support reply event", "error", err)
	}
}

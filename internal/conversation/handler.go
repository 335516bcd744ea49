package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/wolfman30/photka-support-ai/internal/bookings"
	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/events"
	"github.com/wolfman30/photka-support-ai/internal/http/middleware"
	"github.com/wolfman30/photka-support-ai/internal/intent"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// BookingHandoff receives user-triggered gate actions.
type BookingHandoff interface {
	Handoff(ctx context.Context, userID string, in bookings.Intent) (bookings.Handoff, error)
}

// Handler wires HTTP requests to support chat sessions.
type Handler struct {
	manager  *Manager
	bookings BookingHandoff
	bus      events.Bus
	logger   *logging.Logger
}

// NewHandler creates a support chat handler. bus may be nil.
func NewHandler(manager *Manager, handoff BookingHandoff, bus events.Bus, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		manager:  manager,
		bookings: handoff,
		bus:      bus,
		logger:   logger,
	}
}

// ChatView is the client-facing state of a support chat.
type ChatView struct {
	ConversationID string         `json:"conversation_id"`
	State          State          `json:"state"`
	Messages       []chat.Message `json:"messages"`
	Decisions      []DecisionView `json:"decisions"`
}

// DecisionView attaches a gate decision to the assistant message it renders under.
type DecisionView struct {
	MessageIndex int             `json:"message_index"`
	MessageID    string          `json:"message_id"`
	Decision     intent.Decision `json:"decision"`
}

type submitRequest struct {
	Text string `json:"text"`
}

type actionRequest struct {
	MessageID string            `json:"message_id"`
	Kind      intent.ActionKind `json:"kind"`
}

// View renders a session for clients.
func View(s *Session) ChatView {
	messages := s.Snapshot()
	decided := s.gate.EvaluateAll(messages)
	views := make([]DecisionView, 0, len(decided))
	for idx, d := range decided {
		views = append(views, DecisionView{MessageIndex: idx, MessageID: messages[idx].ID, Decision: d})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].MessageIndex < views[j].MessageIndex })
	return ChatView{
		ConversationID: s.ConversationID(),
		State:          s.State(),
		Messages:       messages,
		Decisions:      views,
	}
}

// Open handles POST /support/chat.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s := h.manager.Open(r.Context(), user.ID, user.Name)
	h.markRead(r.Context(), user.ID)
	h.writeJSON(w, http.StatusCreated, View(s))
}

// Get handles GET /support/chat.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.markRead(r.Context(), s.UserID())
	h.writeJSON(w, http.StatusOK, View(s))
}

// Submit handles POST /support/chat/messages.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode support message", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	turn, err := s.Submit(r.Context(), req.Text)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		http.Error(w, "message is empty", http.StatusBadRequest)
		return
	case errors.Is(err, ErrSendInFlight):
		http.Error(w, "a reply is already in progress", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("failed to submit support message", "error", err)
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, turn)
}

// Action handles POST /support/chat/actions: the user pressed a booking button.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode support action", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	action, found := findAction(s, req.MessageID, req.Kind)
	if !found {
		http.Error(w, "action is not available", http.StatusUnprocessableEntity)
		return
	}
	if h.bookings == nil {
		h.writeJSON(w, http.StatusOK, bookings.Handoff{Redirect: action.Path})
		return
	}

	out, err := h.bookings.Handoff(r.Context(), s.UserID(), bookings.Intent{SessionType: action.Session, Timing: action.Timing})
	switch {
	case errors.Is(err, bookings.ErrInstantBookingPending):
		http.Error(w, "you already have an instant booking in queue", http.StatusConflict)
		return
	case errors.Is(err, bookings.ErrInvalidIntent):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("booking handoff failed", "error", err, "user_id", s.UserID())
		http.Error(w, "Failed to start booking", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func findAction(s *Session, messageID string, kind intent.ActionKind) (intent.Action, bool) {
	messages := s.Snapshot()
	for i, m := range messages {
		if m.ID != messageID {
			continue
		}
		d := s.Decide(i)
		if !m.IsAssistant() || !d.Show {
			return intent.Action{}, false
		}
		for _, a := range d.Actions {
			if a.Kind == kind {
				return a, true
			}
		}
		return intent.Action{}, false
	}
	return intent.Action{}, false
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	s, ok := h.manager.Get(user.ID)
	if !ok {
		http.Error(w, "chat is not open", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func (h *Handler) markRead(ctx context.Context, userID string) {
	if h.bus == nil {
		return
	}
	evt, err := events.NewEvent(events.TopicMessagesRead, userID, nil)
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, evt); err != nil {
		h.logger.Warn("failed to publish messages read", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/photka-support-ai/internal/events"
	"github.com/wolfman30/photka-support-ai/internal/http/middleware"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// UnreadCounts reads the badge counts for the current user.
type UnreadCounts interface {
	Counts(userID string) events.UnreadCounts
}

// UnreadHandler serves the app's unread badges.
type UnreadHandler struct {
	counts UnreadCounts
	bus    events.Bus
	logger *logging.Logger
}

func NewUnreadHandler(counts UnreadCounts, bus events.Bus, logger *logging.Logger) *UnreadHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &UnreadHandler{counts: counts, bus: bus, logger: logger}
}

// Get handles GET /me/unread.
func (h *UnreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, h.counts.Counts(user.ID))
}

// ActivitySeen handles POST /me/unread/activity/seen.
func (h *UnreadHandler) ActivitySeen(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, events.TopicActivitySeen)
}

// MessagesRead handles POST /me/unread/messages/read.
func (h *UnreadHandler) MessagesRead(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, events.TopicMessagesRead)
}

func (h *UnreadHandler) publish(w http.ResponseWriter, r *http.Request, topic events.Topic) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.bus == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	evt, err := events.NewEvent(topic, user.ID, nil)
	if err == nil {
		err = h.bus.Publish(r.Context(), evt)
	}
	if err != nil {
		h.logger.Error("failed to publish unread reset", "error", err, "topic", string(topic))
		http.Error(w, "Failed to update unread counts", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

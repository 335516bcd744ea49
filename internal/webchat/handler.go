// Package webchat pushes support chat updates to connected clients over a
// websocket and accepts messages sent on the same socket.
package webchat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/conversation"
	"github.com/wolfman30/photka-support-ai/internal/http/middleware"
	"github.com/wolfman30/photka-support-ai/internal/intent"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

const sendTimeout = 5 * time.Second

// InboundMessage is what the client sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping", "sync"
	Text string `json:"text,omitempty"`
}

// OutboundMessage is what we push to the client.
type OutboundMessage struct {
	Type     string                 `json:"type"` // "chat", "message", "typing", "error", "pong"
	Text     string                 `json:"text,omitempty"`
	Chat     *conversation.ChatView `json:"chat,omitempty"`
	Message  *chat.Message          `json:"message,omitempty"`
	Decision *intent.Decision       `json:"decision,omitempty"`
}

// Handler keeps the open sockets for each user.
type Handler struct {
	manager *conversation.Manager
	logger  *logging.Logger

	mu    sync.RWMutex
	conns map[string]map[*wsConn]struct{} // userID -> sockets
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	return websocket.JSON.Send(c.conn, msg)
}

// NewHandler creates a websocket handler backed by manager.
func NewHandler(manager *conversation.Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		manager: manager,
		logger:  logger,
		conns:   make(map[string]map[*wsConn]struct{}),
	}
}

// HandleWebSocket handles GET /support/chat/ws. The user comes from the auth middleware.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn, user)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, user middleware.User) {
	session, ok := h.manager.Get(user.ID)
	if !ok {
		session = h.manager.Open(ctx, user.ID, user.Name)
	}

	wsc := &wsConn{conn: conn}
	h.register(user.ID, wsc)
	defer h.unregister(user.ID, wsc)

	view := conversation.View(session)
	if err := wsc.send(OutboundMessage{Type: "chat", Chat: &view}); err != nil {
		return
	}
	h.logger.Info("webchat: connection opened", "user_id", user.ID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "user_id", user.ID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = wsc.send(OutboundMessage{Type: "pong"})
		case "sync":
			if current, ok := h.manager.Get(user.ID); ok {
				session = current
			}
			view := conversation.View(session)
			_ = wsc.send(OutboundMessage{Type: "chat", Chat: &view})
		case "message":
			if current, ok := h.manager.Get(user.ID); ok {
				session = current
			}
			h.submit(ctx, wsc, session, msg.Text)
		}
	}
}

// submit runs the completion in the background so the socket keeps answering
// pings. The reply itself reaches the client through the relay.
func (h *Handler) submit(ctx context.Context, wsc *wsConn, session *conversation.Session, text string) {
	if session.State() == conversation.StateAwaitingCompletion {
		_ = wsc.send(OutboundMessage{Type: "error", Text: "Hang on, I'm still answering your last message."})
		return
	}
	_ = wsc.send(OutboundMessage{Type: "typing"})
	go func() {
		_, err := session.Submit(context.WithoutCancel(ctx), text)
		switch {
		case errors.Is(err, conversation.ErrEmptyMessage):
			_ = wsc.send(OutboundMessage{Type: "error", Text: "Type a message first."})
		case errors.Is(err, conversation.ErrSendInFlight):
			_ = wsc.send(OutboundMessage{Type: "error", Text: "Hang on, I'm still answering your last message."})
		case err != nil:
			h.logger.Error("webchat: submit failed", "error", err, "user_id", session.UserID())
		}
	}()
}

// SendToUser pushes msg to every socket the user has open.
func (h *Handler) SendToUser(userID string, msg OutboundMessage) {
	h.mu.RLock()
	targets := make([]*wsConn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(msg); err != nil {
			h.logger.Debug("webchat: push failed", "user_id", userID, "error", err)
		}
	}
}

// Connected reports how many sockets userID has open.
func (h *Handler) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

func (h *Handler) register(userID string, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*wsConn]struct{})
	}
	h.conns[userID][c] = struct{}{}
}

func (h *Handler) unregister(userID string, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], c)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

package webchat

import (
	"context"
	"encoding/json"

	"github.com/wolfman30/photka-support-ai/internal/events"
)

// Relay forwards support replies published on the bus to connected sockets,
// so replies requested over HTTP show up live as well.
type Relay struct {
	handler *Handler
	replies <-chan events.Event
	cancel  func()
}

// NewRelay subscribes to support replies right away; Run consumes them.
func NewRelay(handler *Handler, bus events.Bus) *Relay {
	ch, cancel := bus.Subscribe(events.TopicSupportReply)
	return &Relay{handler: handler, replies: ch, cancel: cancel}
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	defer r.cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-r.replies:
			if !ok {
				return
			}
			r.Deliver(evt)
		}
	}
}

// Deliver pushes the reply named by evt, with its gate decision, to the user's sockets.
func (r *Relay) Deliver(evt events.Event) {
	if r.handler.Connected(evt.UserID) == 0 {
		return
	}
	var payload events.SupportReplyV1
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		r.handler.logger.Warn("webchat: bad support reply payload", "error", err)
		return
	}
	session, ok := r.handler.manager.Get(evt.UserID)
	if !ok {
		return
	}

	messages := session.Snapshot()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].ID != payload.MessageID {
			continue
		}
		msg := messages[i]
		if i > 0 && messages[i-1].IsUser() {
			user := messages[i-1]
			r.handler.SendToUser(evt.UserID, OutboundMessage{Type: "message", Message: &user})
		}
		decision := session.Decide(i)
		r.handler.SendToUser(evt.UserID, OutboundMessage{Type: "message", Message: &msg, Decision: &decision})
		return
	}
}

package intent

import (
	"fmt"
	"net/url"

	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

// ActionKind is a booking call-to-action rendered under an assistant message.
type ActionKind string

const (
	ActionBookNow  ActionKind = "book_now"
	ActionSchedule ActionKind = "schedule"
)

// Action is one rendered booking button.
type Action struct {
	Kind    ActionKind      `json:"kind"`
	Session sessions.Type   `json:"session"`
	Timing  sessions.Timing `json:"timing"`
	Label   string          `json:"label"`
	Path    string          `json:"path"`
}

// Reason explains a gate decision.
type Reason string

const (
	ReasonNoUserTurn      Reason = "no_user_turn"
	ReasonNoSession       Reason = "no_session"
	ReasonEditingPending  Reason = "editing_preference_pending"
	ReasonNotConfirmed    Reason = "not_confirmed"
	ReasonConfirmed       Reason = "confirmed"
	ReasonImplicitConfirm Reason = "implicit_confirmation"
)

// Decision is the gate's verdict for one point in the conversation.
// Timing is TimingNone when both actions are offered.
type Decision struct {
	Show    bool            `json:"show"`
	Session sessions.Type   `json:"session,omitempty"`
	Timing  sessions.Timing `json:"timing,omitempty"`
	Actions []Action        `json:"actions,omitempty"`
	Reason  Reason          `json:"reason"`
}

// Gate decides whether a booking action should accompany a message.
type Gate struct {
	resolver *Resolver
}

// NewGate builds a gate on top of resolver; nil uses the default resolver.
func NewGate(resolver *Resolver) *Gate {
	if resolver == nil {
		resolver = defaultResolver
	}
	return &Gate{resolver: resolver}
}

var defaultGate = NewGate(nil)

// Evaluate runs the default gate for log[index].
func Evaluate(log []chat.Message, index int) Decision {
	return defaultGate.Evaluate(log, index)
}

// EvaluateAll runs the default gate for every assistant message, keyed by message index.
func EvaluateAll(log []chat.Message) map[int]Decision {
	return defaultGate.EvaluateAll(log)
}

// Evaluate decides whether booking actions should be shown at log[index].
// It stays hidden until a session is known, any pending editing question is
// answered, and the user either confirmed or stated both a session and a timing.
func (g *Gate) Evaluate(log []chat.Message, index int) Decision {
	st := g.resolver.Resolve(log, index)
	return decide(st)
}

// EvaluateAll returns decisions for each assistant message in log.
func (g *Gate) EvaluateAll(log []chat.Message) map[int]Decision {
	out := make(map[int]Decision)
	for i, msg := range log {
		if msg.IsAssistant() {
			out[i] = g.Evaluate(log, i)
		}
	}
	return out
}

func decide(st State) Decision {
	switch {
	case !st.HasUserTurn:
		return Decision{Reason: ReasonNoUserTurn}
	case st.Session == sessions.None:
		return Decision{Reason: ReasonNoSession}
	case !st.EditingSatisfied:
		return Decision{Reason: ReasonEditingPending}
	}

	reason := ReasonConfirmed
	if !st.Confirmed {
		if st.UserStated == sessions.None || st.Timing == sessions.TimingNone {
			return Decision{Reason: ReasonNotConfirmed}
		}
		reason = ReasonImplicitConfirm
	}

	return Decision{
		Show:    true,
		Session: st.Session,
		Timing:  st.Timing,
		Actions: actionsFor(st.Session, st.Timing),
		Reason:  reason,
	}
}

func actionsFor(session sessions.Type, timing sessions.Timing) []Action {
	switch timing {
	case sessions.TimingNow:
		return []Action{bookNow(session)}
	case sessions.TimingLater:
		return []Action{schedule(session)}
	default:
		return []Action{bookNow(session), schedule(session)}
	}
}

func bookNow(session sessions.Type) Action {
	return Action{
		Kind:    ActionBookNow,
		Session: session,
		Timing:  sessions.TimingNow,
		Label:   fmt.Sprintf("Book %s Now", session.Label()),
		Path:    BookingPath(session, sessions.TimingNow),
	}
}

func schedule(session sessions.Type) Action {
	return Action{
		Kind:    ActionSchedule,
		Session: session,
		Timing:  sessions.TimingLater,
		Label:   fmt.Sprintf("Schedule %s", session.Label()),
		Path:    BookingPath(session, sessions.TimingLater),
	}
}

// BookingPath is the booking flow a call-to-action navigates to.
func BookingPath(session sessions.Type, timing sessions.Timing) string {
	base := "/book"
	if timing == sessions.TimingLater {
		base = "/schedule"
	}
	q := url.Values{}
	q.Set("session_type", string(session))
	return base + "?" + q.Encode()
}

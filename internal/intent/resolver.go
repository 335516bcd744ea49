package intent

import (
	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

// State is the booking intent inferred from a conversation at one point in time.
type State struct {
	AIRecommended sessions.Type
	UserStated    sessions.Type
	Session       sessions.Type
	Timing        sessions.Timing

	EditingQuestionAsked bool
	EditingRequired      bool
	EditingSatisfied     bool

	// SwitchedByEditingAnswer is set when a "team edits" answer turned RAW into Edited DSLR.
	SwitchedByEditingAnswer bool

	HasUserTurn bool
	LatestUser  chat.Message
	// Confirmed is the confirmation detector's verdict on LatestUser against the
	// recommendation that preceded it.
	Confirmed bool
}

// Resolver folds a message log into a State. The zero value uses the default detectors.
type Resolver struct {
	detectors []Detector
}

// NewResolver builds a resolver over the given detectors (defaults when empty).
func NewResolver(detectors ...Detector) *Resolver {
	return &Resolver{detectors: detectors}
}

var defaultResolver = NewResolver(DefaultDetectors()...)

// Resolve computes the State for the message at index using the default detectors.
func Resolve(log []chat.Message, index int) State {
	return defaultResolver.Resolve(log, index)
}

// Resolve computes the State visible at log[index]: every message up to and
// including index is considered, later messages are not. An index past the end
// covers the whole log; a negative index sees nothing.
func (r *Resolver) Resolve(log []chat.Message, index int) State {
	detectors := r.detectors
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	window := visible(log, index)

	var (
		st        State
		latestSig Signals
		polarity  EditingPolarity
	)
	latestUser, lastQuestion, statedAt, polarityAt := -1, -1, -1, -1

	for i, msg := range window {
		sig := Analyze(msg, st.AIRecommended, detectors...)
		switch {
		case msg.IsAssistant():
			if sig.Recommendation != sessions.None {
				st.AIRecommended = sig.Recommendation
			}
			if sig.EditingQuestion {
				st.EditingQuestionAsked = true
				lastQuestion = i
				// A new question resets any earlier answer.
				polarity, polarityAt = PolarityUnknown, -1
			}
		case msg.IsUser():
			latestUser, latestSig = i, sig
			if sig.StatedSession != sessions.None {
				st.UserStated, statedAt = sig.StatedSession, i
			}
			if sig.Timing != sessions.TimingNone {
				st.Timing = sig.Timing
			}
			if lastQuestion >= 0 && i > lastQuestion && sig.EditingPolarity != PolarityUnknown {
				polarity, polarityAt = sig.EditingPolarity, i
			}
		}
	}

	st.Session = st.UserStated
	if st.Session == sessions.None {
		st.Session = st.AIRecommended
	}

	if st.Session == sessions.RawDSLR && st.EditingQuestionAsked &&
		polarity == PolarityTeamEdits && polarityAt >= statedAt {
		st.Session = sessions.EditedDSLR
		st.SwitchedByEditingAnswer = true
	}

	if latestUser >= 0 {
		st.HasUserTurn = true
		st.LatestUser = window[latestUser]
		st.Confirmed = latestSig.Confirmation
	}

	st.EditingRequired = st.Session == sessions.RawDSLR && st.EditingQuestionAsked
	// Only the latest user message can answer the editing question.
	st.EditingSatisfied = !st.EditingRequired || (st.HasUserTurn && latestSig.EditingAnswered)

	return st
}

func visible(log []chat.Message, index int) []chat.Message {
	if index < 0 {
		return nil
	}
	if index >= len(log) {
		return log
	}
	return log[:index+1]
}

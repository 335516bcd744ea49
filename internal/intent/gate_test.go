package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

func TestGateNoPrematureAction(t *testing.T) {
	log := conversation(assistant("I'd recommend iPhone"))
	d := Evaluate(log, 0)
	assert.False(t, d.Show)
	assert.Equal(t, ReasonNoUserTurn, d.Reason)
	assert.Empty(t, d.Actions)
}

func TestGateImplicitConfirmationFromDualStatement(t *testing.T) {
	log := conversation(user("iphone"), user("now"))
	d := Evaluate(log, len(log)-1)
	require.True(t, d.Show)
	assert.Equal(t, sessions.IPhone, d.Session)
	assert.Equal(t, sessions.TimingNow, d.Timing)
	assert.Equal(t, ReasonImplicitConfirm, d.Reason)
	require.Len(t, d.Actions, 1)
	assert.Equal(t, ActionBookNow, d.Actions[0].Kind)
	assert.Equal(t, "/book?session_type=iphone", d.Actions[0].Path)
	assert.Equal(t, "Book iPhone Session Now", d.Actions[0].Label)
}

func TestGateRawRequiresEditingAnswer(t *testing.T) {
	log := conversation(assistant(editingQuestion), user("raw"), user("now"))
	d := Evaluate(log, len(log)-1)
	assert.False(t, d.Show)
	assert.Equal(t, ReasonEditingPending, d.Reason)

	log = append(log, conversation(user("my marketing team will edit them"))...)
	d = Evaluate(log, len(log)-1)
	require.True(t, d.Show)
	assert.Equal(t, sessions.RawDSLR, d.Session)
	assert.Equal(t, sessions.TimingNow, d.Timing)
	assert.Equal(t, ReasonConfirmed, d.Reason)
}

func TestGateEditingAnswerMustBeLatestUserMessage(t *testing.T) {
	log := conversation(
		assistant(editingQuestion),
		user("my marketing team will edit them"),
		user("raw"),
		user("now"),
	)
	st := Resolve(log, len(log)-1)
	assert.Equal(t, sessions.RawDSLR, st.Session)
	assert.True(t, st.EditingRequired)
	assert.False(t, st.EditingSatisfied)

	d := Evaluate(log, len(log)-1)
	assert.False(t, d.Show)
	assert.Equal(t, ReasonEditingPending, d.Reason)
}

func TestGateOffersBothActionsWithoutTiming(t *testing.T) {
	log := conversation(
		assistant("For quick stories I'd recommend the iPhone session."),
		user("yes sounds good"),
		assistant("Awesome! When are you thinking? Now or later?"),
	)
	d := Evaluate(log, 2)
	require.True(t, d.Show)
	assert.Equal(t, sessions.TimingNone, d.Timing)
	require.Len(t, d.Actions, 2)
	assert.Equal(t, ActionBookNow, d.Actions[0].Kind)
	assert.Equal(t, ActionSchedule, d.Actions[1].Kind)
	assert.Equal(t, "/schedule?session_type=iphone", d.Actions[1].Path)
	assert.Equal(t, "Schedule iPhone Session", d.Actions[1].Label)
}

func TestGateScheduleOnlyForLater(t *testing.T) {
	log := conversation(user("edited dslr"), user("tomorrow"), assistant("Great, let's get that scheduled."))
	d := Evaluate(log, 2)
	require.True(t, d.Show)
	require.Len(t, d.Actions, 1)
	assert.Equal(t, ActionSchedule, d.Actions[0].Kind)
	assert.Equal(t, sessions.EditedDSLR, d.Actions[0].Session)
}

func TestGateStaysHidden(t *testing.T) {
	tests := []struct {
		name   string
		log    []chat.Message
		reason Reason
	}{
		{
			name:   "no session mentioned",
			log:    conversation(user("hi there"), assistant("Hey! What can I help with?")),
			reason: ReasonNoSession,
		},
		{
			name:   "recommendation without confirmation",
			log:    conversation(assistant("I'd recommend iPhone"), user("hmm what does it cost?")),
			reason: ReasonNotConfirmed,
		},
		{
			name:   "confirmation contradicted in same message",
			log:    conversation(assistant("I'd recommend RAW DSLR"), user("yes but I want iPhone instead")),
			reason: ReasonNotConfirmed,
		},
		{
			name:   "stated session without timing",
			log:    conversation(user("edited dslr"), assistant("Nice choice.")),
			reason: ReasonNotConfirmed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.log, len(tt.log)-1)
			assert.False(t, d.Show)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestGateIsDeterministic(t *testing.T) {
	log := conversation(
		assistant("I'd recommend RAW DSLR. "+editingQuestion),
		user("photka team please"),
		assistant("Great choice! For edited photos, I'd recommend our Edited DSLR session instead. When are you thinking? Now or later?"),
		user("yes, now"),
	)
	first := Evaluate(log, 3)
	require.True(t, first.Show)
	assert.Equal(t, sessions.EditedDSLR, first.Session)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Evaluate(log, 3))
	}
}

func TestEvaluateAllCoversAssistantMessages(t *testing.T) {
	log := conversation(
		assistant("Hey Maya! What can I help you with today?"),
		user("iphone now please"),
		assistant("Great, iPhone it is!"),
	)
	all := EvaluateAll(log)
	require.Len(t, all, 2)
	assert.False(t, all[0].Show)
	assert.True(t, all[2].Show)
	_, hasUser := all[1]
	assert.False(t, hasUser)
}

func TestGateAcceptsCustomDetectors(t *testing.T) {
	slang := DetectorFunc{
		DetectorName: "slang_confirmation",
		Fn: func(m chat.Message, _ sessions.Type, s *Signals) {
			if m.IsUser() && strings.TrimSpace(strings.ToLower(m.Text)) == "bet" {
				s.Confirmation = true
			}
		},
	}
	log := conversation(assistant("I'd recommend the iPhone session."), user("bet"))

	assert.False(t, Evaluate(log, 1).Show)

	gate := NewGate(NewResolver(append(DefaultDetectors(), slang)...))
	d := gate.Evaluate(log, 1)
	assert.True(t, d.Show)
	assert.Equal(t, sessions.IPhone, d.Session)
}

func TestBookingPath(t *testing.T) {
	assert.Equal(t, "/book?session_type=raw_dslr", BookingPath(sessions.RawDSLR, sessions.TimingNow))
	assert.Equal(t, "/schedule?session_type=edited_dslr", BookingPath(sessions.EditedDSLR, sessions.TimingLater))
}

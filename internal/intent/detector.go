package intent

import (
	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

// Signals is everything the detectors learned from one message.
type Signals struct {
	Recommendation  sessions.Type
	StatedSession   sessions.Type
	Timing          sessions.Timing
	Confirmation    bool
	TimingQuestion  bool
	EditingQuestion bool
	EditingAnswered bool
	EditingPolarity EditingPolarity
}

// Detector contributes to the Signals of a single message. recommended is the
// session the assistant most recently recommended before this message.
type Detector interface {
	Name() string
	Apply(msg chat.Message, recommended sessions.Type, s *Signals)
}

// DetectorFunc adapts a function into a Detector.
type DetectorFunc struct {
	DetectorName string
	Fn           func(msg chat.Message, recommended sessions.Type, s *Signals)
}

func (d DetectorFunc) Name() string { return d.DetectorName }

func (d DetectorFunc) Apply(msg chat.Message, recommended sessions.Type, s *Signals) {
	d.Fn(msg, recommended, s)
}

// DefaultDetectors returns the built-in detector set.
func DefaultDetectors() []Detector {
	return []Detector{
		DetectorFunc{"session_recommendation", func(m chat.Message, _ sessions.Type, s *Signals) {
			if m.IsAssistant() {
				s.Recommendation = DetectSessionRecommendation(m.Text)
			}
		}},
		DetectorFunc{"timing_question", func(m chat.Message, _ sessions.Type, s *Signals) {
			if m.IsAssistant() {
				s.TimingQuestion = IsTimingQuestion(m.Text)
			}
		}},
		DetectorFunc{"editing_question", func(m chat.Message, _ sessions.Type, s *Signals) {
			if m.IsAssistant() {
				s.EditingQuestion = IsEditingPreferenceQuestion(m.Text)
			}
		}},
		DetectorFunc{"user_session", func(m chat.Message, _ sessions.Type, s *Signals) {
			if m.IsUser() {
				s.StatedSession = DetectUserSessionPreference(m.Text)
			}
		}},
		DetectorFunc{"user_timing", func(m chat.Message, _ sessions.Type, s *Signals) {
			if m.IsUser() {
				s.Timing = UserTimingPreference(m.Text)
			}
		}},
		DetectorFunc{"confirmation", func(m chat.Message, rec sessions.Type, s *Signals) {
			if m.IsUser() {
				s.Confirmation = IsUserConfirmation(m.Text, rec)
			}
		}},
		DetectorFunc{"editing_answer", func(m chat.Message, _ sessions.Type, s *Signals) {
			if m.IsUser() {
				s.EditingAnswered = HasAnsweredEditingPreference(m.Text)
				s.EditingPolarity = EditingAnswer(m.Text)
			}
		}},
	}
}

// Analyze runs detectors over msg. With no detectors the defaults are used.
func Analyze(msg chat.Message, recommended sessions.Type, detectors ...Detector) Signals {
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	var s Signals
	for _, d := range detectors {
		d.Apply(msg, recommended, &s)
	}
	return s
}

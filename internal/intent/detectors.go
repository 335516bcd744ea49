// Package intent infers booking intent from support chat turns and decides when
// the chat should offer a booking action.
//
// Everything here is a pure function of message text: detectors classify a
// single message, Resolve folds a conversation into a State, and Evaluate turns
// that State into a call-to-action Decision. None of them return errors.
package intent

import (
	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

// EditingPolarity records which side of the editing question a user picked.
type EditingPolarity string

const (
	PolarityUnknown   EditingPolarity = ""
	PolarityTeamEdits EditingPolarity = "team_edits"
	PolaritySelfEdits EditingPolarity = "self_edits"
)

// DetectSessionRecommendation returns the session type an assistant message recommends.
func DetectSessionRecommendation(text string) sessions.Type {
	t, _ := firstMatch(recommendationRules, normalize(text))
	return t
}

// DetectUserSessionPreference returns the session type a user message asks for.
// Common iPhone misspellings ("iphne", "iphonw") are accepted.
func DetectUserSessionPreference(text string) sessions.Type {
	t, _ := firstMatch(userSessionRules, normalize(text))
	return t
}

// IsUserConfirmation reports whether text agrees to the recommended session.
// Naming a different session type in the same message voids the confirmation.
func IsUserConfirmation(text string, recommended sessions.Type) bool {
	lower := normalize(text)
	if !anyMatch(confirmationPatterns, lower) {
		return false
	}
	return !mentionsOtherSession(lower, recommended)
}

func mentionsOtherSession(lower string, recommended sessions.Type) bool {
	switch recommended {
	case sessions.IPhone:
		return dslrPattern.MatchString(lower) || editedPattern.MatchString(lower) || rawPattern.MatchString(lower)
	case sessions.RawDSLR:
		return iphonePattern.MatchString(lower) || editedPattern.MatchString(lower)
	case sessions.EditedDSLR:
		return iphonePattern.MatchString(lower) || rawPattern.MatchString(lower)
	default:
		return false
	}
}

// IsTimingQuestion reports whether an assistant message asks "now or later".
func IsTimingQuestion(text string) bool {
	return anyMatch(timingQuestionPatterns, normalize(text))
}

// UserTimingPreference classifies a user message as now, later or neither.
// When keywords from both groups appear, the one written last wins, and a
// longer phrase beats any shorter keyword inside it ("later today" is later).
func UserTimingPreference(text string) sessions.Timing {
	lower := normalize(text)

	type hit struct {
		start, end int
		timing     sessions.Timing
	}
	var hits []hit
	for _, r := range timingRules {
		for _, loc := range r.pattern.FindAllStringIndex(lower, -1) {
			hits = append(hits, hit{start: loc[0], end: loc[1], timing: r.result})
		}
	}

	best := hit{start: -1}
	for i, h := range hits {
		shadowed := false
		for j, o := range hits {
			if i != j && o.start <= h.start && o.end >= h.end && o.end-o.start > h.end-h.start {
				shadowed = true
				break
			}
		}
		if shadowed {
			continue
		}
		if h.start > best.start || (h.start == best.start && h.end-h.start > best.end-best.start) {
			best = h
		}
	}
	if best.start < 0 {
		return sessions.TimingNone
	}
	return best.timing
}

// IsEditingPreferenceQuestion reports whether an assistant message asks who
// should edit RAW photos.
func IsEditingPreferenceQuestion(text string) bool {
	return anyMatch(editingQuestionPatterns, normalize(text))
}

// HasAnsweredEditingPreference reports whether a user message answers the
// editing question. It does not say which answer was given; see EditingAnswer.
func HasAnsweredEditingPreference(text string) bool {
	return anyMatch(editingAnswerPatterns, normalize(text))
}

// EditingAnswer classifies which editing option a user message picks.
func EditingAnswer(text string) EditingPolarity {
	p, _ := firstMatch(editingPolarityRules, normalize(text))
	return p
}

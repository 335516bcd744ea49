package intent

import (
	"regexp"
	"strings"

	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

// rule maps a pattern to the classification it produces. Tables are evaluated
// in order and the first matching rule wins.
type rule[T any] struct {
	pattern *regexp.Regexp
	result  T
}

func firstMatch[T any](rules []rule[T], text string) (T, bool) {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.result, true
		}
	}
	var zero T
	return zero, false
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// normalize lower-cases text and folds typographic apostrophes so "they’ll" matches "they'll".
func normalize(text string) string {
	text = strings.ToLower(text)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

var (
	editedPattern = regexp.MustCompile(`\bedited\b`)
	rawPattern    = regexp.MustCompile(`\braw\b`)
	iphonePattern = regexp.MustCompile(`\biph[a-z0-9]*`)
	dslrPattern   = regexp.MustCompile(`\bdslr\b`)
)

// "edited DSLR" is checked before RAW so it never reads as RAW. iPhone comes
// next: replies that recommend it often compare it against RAW DSLR.
var recommendationRules = []rule[sessions.Type]{
	{regexp.MustCompile(`edited dslr`), sessions.EditedDSLR},
	{regexp.MustCompile(`iphone`), sessions.IPhone},
	{regexp.MustCompile(`raw dslr`), sessions.RawDSLR},
	{rawPattern, sessions.RawDSLR},
	{editedPattern, sessions.EditedDSLR},
}

// An explicit "edited" overrides "raw": "edited, not raw" states a preference against RAW files.
var userSessionRules = []rule[sessions.Type]{
	{regexp.MustCompile(`edited dslr`), sessions.EditedDSLR},
	{editedPattern, sessions.EditedDSLR},
	{regexp.MustCompile(`raw dslr|raw files?\b`), sessions.RawDSLR},
	{rawPattern, sessions.RawDSLR},
	{iphonePattern, sessions.IPhone},
}

var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(yes|yeah|yep|yup|sure|ok|okay|okey)\b`),
	regexp.MustCompile(`let's do it|let's go|let's book|lets do it|lets book`),
	regexp.MustCompile(`sounds good|that works|\bperfect\b|\bgreat\b`),
	regexp.MustCompile(`i'll take it|i want that|i'd like that|that's what i want`),
	regexp.MustCompile(`go ahead|book it|i'm in|count me in`),
	regexp.MustCompile(`my marketing team|they'll handle it|they can edit`),
}

var timingQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`when are you thinking`),
	regexp.MustCompile(`now or later`),
	regexp.MustCompile(`when do you want`),
	regexp.MustCompile(`when would you like`),
}

var timingRules = []rule[sessions.Timing]{
	{regexp.MustCompile(`\blater today\b`), sessions.TimingLater},
	{regexp.MustCompile(`\bright now\b`), sessions.TimingNow},
	{regexp.MustCompile(`\bnow\b`), sessions.TimingNow},
	{regexp.MustCompile(`\basap\b`), sessions.TimingNow},
	{regexp.MustCompile(`\bimmediately\b`), sessions.TimingNow},
	{regexp.MustCompile(`\btoday\b`), sessions.TimingNow},
	{regexp.MustCompile(`\blat[er4]*\b`), sessions.TimingLater},
	{regexp.MustCompile(`\bschedul[a-z]*`), sessions.TimingLater},
	{regexp.MustCompile(`\bfuture\b`), sessions.TimingLater},
	{regexp.MustCompile(`\btomorrow\b`), sessions.TimingLater},
	{regexp.MustCompile(`\bnext week\b`), sessions.TimingLater},
}

var editingQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`prefer our photka team to edit`),
	regexp.MustCompile(`raw files so your marketing team`),
	regexp.MustCompile(`photka team to edit the photos`),
	regexp.MustCompile(`marketing team can edit them`),
}

var editingAnswerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`marketing team`),
	regexp.MustCompile(`\bmy team\b`),
	regexp.MustCompile(`\bthey'?ll\b`),
	regexp.MustCompile(`\bthey can\b`),
	regexp.MustCompile(`photka team`),
	regexp.MustCompile(`you can edit`),
	regexp.MustCompile(`raw files?\b`),
}

// Team-edit phrasing is checked first so "photka team, not raw files" reads as a team edit.
var editingPolarityRules = []rule[EditingPolarity]{
	{regexp.MustCompile(`photka team|your team|you guys|you can edit|you edit|have you edit|\bedited\b`), PolarityTeamEdits},
	{regexp.MustCompile(`marketing team|\bmy team\b|\bour team\b|\bthey'?ll\b|\bthey can\b|raw files?\b|myself|ourselves|in[- ]house|i'?ll edit|we'?ll edit`), PolaritySelfEdits},
}

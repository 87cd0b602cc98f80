package router

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/vaanicare/vaanicare/internal/models"
)

// Request carries everything the router needs for one decision. The router
// is a pure function of this value: no side effects, identical input always
// yields the same decision. All mutation (state transition, speech output,
// re-listening) belongs to the caller.
type Request struct {
	Transcript string
	Step       models.StepType
	Language   models.Language
	Candidates []models.Candidate
	// AllowConfirm is set by the sequencer only on its confirmation step;
	// confirm keywords spoken on any other step must not trigger booking.
	AllowConfirm bool
	// TimeSlots marks candidate labels as clock slots ("9:00 AM"), enabling
	// hour extraction with AM/PM disambiguation.
	TimeSlots bool
}

// label tokens this short are too generic to identify a candidate.
const minLabelTokenLength = 3

// filler words never used for label matching.
var labelStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "dr.": {}, "doctor": {},
}

// Route decides what a finalized transcript means at the current step.
// Matching priority: global home keywords, global back keywords, confirm
// keywords (confirmation step only), numeric-position match, then candidate
// label/keyword substring match. Anything else is a no-match and the caller
// re-prompts.
func Route(req Request) models.Decision {
	transcript := normalize(req.Transcript)
	if transcript == "" {
		return models.Decision{Kind: models.DecisionNoMatch}
	}

	if containsAny(transcript, Keywords(req.Language, IntentHome)) {
		return models.Decision{Kind: models.DecisionGoHome}
	}
	if containsAny(transcript, Keywords(req.Language, IntentBack)) {
		return models.Decision{Kind: models.DecisionGoBack}
	}
	if req.AllowConfirm && containsAny(transcript, Keywords(req.Language, IntentConfirm)) {
		return models.Decision{Kind: models.DecisionConfirm}
	}

	if req.TimeSlots {
		if d, ok := matchTimeSlot(transcript, req.Language, req.Candidates); ok {
			return d
		}
	}

	if n, ok := ExtractNumber(transcript); ok && n >= 1 && n <= len(req.Candidates) {
		return models.Decision{
			Kind:      models.DecisionSelect,
			Index:     n - 1,
			Candidate: req.Candidates[n-1].Label,
		}
	}

	if idx, ok := matchLabel(transcript, req.Candidates); ok {
		return models.Decision{
			Kind:      models.DecisionSelect,
			Index:     idx,
			Candidate: req.Candidates[idx].Label,
		}
	}

	slog.Debug("router no match", "step", req.Step, "language", req.Language, "candidates", len(req.Candidates))
	return models.Decision{Kind: models.DecisionNoMatch}
}

// normalize lowercases and collapses whitespace; the recognizer's casing and
// spacing are not meaningful.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsAny(transcript string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(transcript, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// matchLabel finds the first candidate whose full label, extra keyword, or
// label token appears in the transcript. Keywords are checked across all
// candidates before any single label token: option lists often share a unit
// word in every label ("lakh" in income brackets), and a shared token on an
// earlier label must not shadow a later candidate's distinctive keyword.
func matchLabel(transcript string, candidates []models.Candidate) (int, bool) {
	for i, c := range candidates {
		label := strings.ToLower(c.Label)
		if label != "" && strings.Contains(transcript, label) {
			return i, true
		}
	}
	for i, c := range candidates {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(transcript, strings.ToLower(kw)) {
				return i, true
			}
		}
	}
	for i, c := range candidates {
		for _, tok := range strings.Fields(strings.ToLower(c.Label)) {
			tok = strings.Trim(tok, ".,()")
			if len(tok) < minLabelTokenLength {
				continue
			}
			if _, skip := labelStopwords[tok]; skip {
				continue
			}
			if strings.Contains(transcript, tok) {
				return i, true
			}
		}
	}
	return 0, false
}

// matchTimeSlot selects a slot by spoken hour. When the same hour exists as
// both an AM and a PM slot, morning/afternoon keywords (bilingual) or a bare
// "am"/"pm" token break the tie; with no tiebreaker the earlier slot wins.
func matchTimeSlot(transcript string, lang models.Language, candidates []models.Candidate) (models.Decision, bool) {
	hour, ok := ExtractNumber(transcript)
	if !ok {
		return models.Decision{}, false
	}

	wantsAM := containsAny(transcript, Keywords(lang, IntentMorning)) || hasToken(transcript, "am")
	wantsPM := containsAny(transcript, Keywords(lang, IntentAfternoon)) || hasToken(transcript, "pm")

	matched := -1
	for i, c := range candidates {
		slotHour, slotPM, parsed := parseSlot(c.Label)
		if !parsed || slotHour != hour {
			continue
		}
		if wantsAM && slotPM {
			continue
		}
		if wantsPM && !slotPM {
			continue
		}
		matched = i
		break
	}
	if matched < 0 {
		return models.Decision{}, false
	}
	return models.Decision{
		Kind:      models.DecisionSelect,
		Index:     matched,
		Candidate: candidates[matched].Label,
	}, true
}

// parseSlot reads labels like "9:00 AM" or "4 PM" into an hour and a PM flag.
func parseSlot(label string) (hour int, pm bool, ok bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	pm = strings.Contains(s, "pm")
	digits := s
	if i := strings.IndexAny(s, ": "); i > 0 {
		digits = s[:i]
	}
	h, err := strconv.Atoi(strings.TrimSpace(digits))
	if err != nil || h < 1 || h > 12 {
		return 0, false, false
	}
	return h, pm, true
}

func hasToken(transcript, token string) bool {
	for _, f := range strings.Fields(transcript) {
		if strings.Trim(f, ".,") == token {
			return true
		}
	}
	return false
}

package flow

import (
	"fmt"

	"github.com/vaanicare/vaanicare/internal/models"
)

// optionFormat is the format string for announcing one numbered choice.
const optionFormat = "\n%d. %s"

// formatOptions appends a numbered option list to a prompt body, the same
// shape the router's numeric-position matching counts against.
func formatOptions(body string, candidates []models.Candidate) string {
	s := body
	for i, c := range candidates {
		s += fmt.Sprintf(optionFormat, i+1, c.Label)
	}
	return s
}

var retryPhrases = map[models.Language]string{
	models.LanguageEnglish:   "Sorry, I didn't catch that. Please say the option number or its name.",
	models.LanguageMalayalam: "ക്ഷമിക്കണം, എനിക്ക് മനസ്സിലായില്ല. ഓപ്ഷൻ നമ്പറോ പേരോ പറയൂ.",
}

// RetryPhrase is announced after a no-match before listening re-opens.
// There is no retry cap; the loop continues until the user is understood or
// leaves.
func RetryPhrase(lang models.Language) string {
	if p, ok := retryPhrases[lang]; ok {
		return p
	}
	return retryPhrases[models.LanguageEnglish]
}

var exitPhrases = map[models.Language]string{
	models.LanguageEnglish:   "Taking you back to the main menu.",
	models.LanguageMalayalam: "പ്രധാന മെനുവിലേക്ക് തിരികെ കൊണ്ടുപോകുന്നു.",
}

// ExitPhrase is announced when a flow is left for service selection.
func ExitPhrase(lang models.Language) string {
	if p, ok := exitPhrases[lang]; ok {
		return p
	}
	return exitPhrases[models.LanguageEnglish]
}

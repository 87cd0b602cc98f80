// Package router converts finalized speech transcripts into discrete
// navigation decisions for the conversational flows.
//
// Matching is literal substring matching against fixed bilingual keyword
// sets, with numeric-position and label matching for step candidates. The
// keyword tables are externalized as an embedded data table keyed by
// (language, intent), so adding a language never touches matching logic.
package router

import (
	"encoding/json"
	"fmt"

	_ "embed"

	"github.com/vaanicare/vaanicare/internal/models"
)

// Intent names a class of global voice command in the keyword table.
type Intent string

// Intents recognized by the keyword table.
const (
	IntentHome      Intent = "home"
	IntentBack      Intent = "back"
	IntentConfirm   Intent = "confirm"
	IntentMorning   Intent = "morning"
	IntentAfternoon Intent = "afternoon"
)

//go:embed keywords.json
var keywordTableJSON []byte

// keywordTable is lang → intent → literal keyword forms, loaded once at init.
var keywordTable map[models.Language]map[Intent][]string

func init() {
	if err := json.Unmarshal(keywordTableJSON, &keywordTable); err != nil {
		panic(fmt.Sprintf("failed to parse embedded keyword table: %v", err))
	}
}

// Keywords returns the literal forms for an intent in the given language,
// always including the English forms so English commands work in every
// language setting. The returned slice must not be modified.
func Keywords(lang models.Language, intent Intent) []string {
	english := keywordTable[models.LanguageEnglish][intent]
	if lang == models.LanguageEnglish {
		return english
	}
	localized := keywordTable[lang][intent]
	if len(localized) == 0 {
		return english
	}
	merged := make([]string, 0, len(localized)+len(english))
	merged = append(merged, localized...)
	merged = append(merged, english...)
	return merged
}

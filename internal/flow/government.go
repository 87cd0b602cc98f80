package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/vaanicare/vaanicare/internal/models"
)

// SchemeSearcher finds government schemes matching a citizen profile.
type SchemeSearcher interface {
	FindSchemes(ctx context.Context, profile models.SchemeProfile) ([]models.SearchResult, error)
}

var genderCandidates = []models.Candidate{
	{Label: "Male", Keywords: []string{"male", "man", "പുരുഷൻ", "purushan"}},
	{Label: "Female", Keywords: []string{"female", "woman", "സ്ത്രീ", "sthree"}},
	{Label: "Other", Keywords: []string{"other", "മറ്റുള്ളവ"}},
}

var incomeCandidates = []models.Candidate{
	{Label: "Below 1 lakh", Keywords: []string{"below", "under", "low"}},
	{Label: "1 to 5 lakh", Keywords: []string{"five", "middle"}},
	{Label: "Above 5 lakh", Keywords: []string{"above", "high"}},
}

var categoryCandidates = []models.Candidate{
	{Label: "General", Keywords: []string{"general", "ജനറൽ"}},
	{Label: "OBC", Keywords: []string{"obc", "backward"}},
	{Label: "SC", Keywords: []string{"sc", "scheduled caste"}},
	{Label: "ST", Keywords: []string{"st", "scheduled tribe"}},
}

// GovernmentFlow interviews the caller for a scheme eligibility profile,
// then reads out matching schemes. Free-text steps take the raw transcript
// as the answer.
type GovernmentFlow struct {
	searcher SchemeSearcher
}

func NewGovernmentFlow(searcher SchemeSearcher) *GovernmentFlow {
	return &GovernmentFlow{searcher: searcher}
}

func (f *GovernmentFlow) Service() models.ServiceType { return models.ServiceGovernment }

func (f *GovernmentFlow) Steps() []Step {
	return []Step{
		{ID: models.StepSchemeAge, FreeText: true},
		{ID: models.StepSchemeGender},
		{ID: models.StepSchemeState, FreeText: true},
		{ID: models.StepSchemeIncome},
		{ID: models.StepSchemeOccupation, FreeText: true},
		{ID: models.StepSchemeCategory},
		{ID: models.StepSchemeResults, Terminal: true},
	}
}

func (f *GovernmentFlow) Candidates(state *models.FlowState, step Step) []models.Candidate {
	switch step.ID {
	case models.StepSchemeGender:
		return genderCandidates
	case models.StepSchemeIncome:
		return incomeCandidates
	case models.StepSchemeCategory:
		return categoryCandidates
	}
	return nil
}

func (f *GovernmentFlow) Announce(state *models.FlowState, step Step) string {
	ml := state.Language == models.LanguageMalayalam
	switch step.ID {
	case models.StepSchemeAge:
		if ml {
			return "നിങ്ങളുടെ വയസ്സ് എത്രയാണ്?"
		}
		return "How old are you?"
	case models.StepSchemeGender:
		body := "What is your gender?"
		if ml {
			body = "നിങ്ങളുടെ ലിംഗം ഏതാണ്?"
		}
		return formatOptions(body, genderCandidates)
	case models.StepSchemeState:
		if ml {
			return "നിങ്ങൾ ഏത് സംസ്ഥാനത്താണ് താമസിക്കുന്നത്?"
		}
		return "Which state do you live in?"
	case models.StepSchemeIncome:
		body := "What is your yearly family income?"
		if ml {
			body = "നിങ്ങളുടെ കുടുംബത്തിന്റെ വാർഷിക വരുമാനം എത്രയാണ്?"
		}
		return formatOptions(body, incomeCandidates)
	case models.StepSchemeOccupation:
		if ml {
			return "നിങ്ങളുടെ ജോലി എന്താണ്?"
		}
		return "What is your occupation?"
	case models.StepSchemeCategory:
		body := "Which category do you belong to?"
		if ml {
			body = "നിങ്ങൾ ഏത് വിഭാഗത്തിൽ പെടുന്നു?"
		}
		return formatOptions(body, categoryCandidates)
	}
	return ""
}

func (f *GovernmentFlow) Apply(ctx context.Context, state *models.FlowState, step Step, answer string) error {
	key, ok := map[models.StepType]models.DataKey{
		models.StepSchemeAge:        models.DataKeyAge,
		models.StepSchemeGender:     models.DataKeyGender,
		models.StepSchemeState:      models.DataKeyState,
		models.StepSchemeIncome:     models.DataKeyIncome,
		models.StepSchemeOccupation: models.DataKeyOccupation,
		models.StepSchemeCategory:   models.DataKeyCategory,
	}[step.ID]
	if !ok {
		return fmt.Errorf("step %s does not accept answers", step.ID)
	}
	state.StepData[key] = answer
	return nil
}

// Finalize searches schemes for the collected profile and renders a spoken
// summary.
func (f *GovernmentFlow) Finalize(ctx context.Context, state *models.FlowState) (string, error) {
	profile := models.SchemeProfile{
		Age:           state.StepData[models.DataKeyAge],
		Gender:        state.StepData[models.DataKeyGender],
		State:         state.StepData[models.DataKeyState],
		IncomeBracket: state.StepData[models.DataKeyIncome],
		Occupation:    state.StepData[models.DataKeyOccupation],
		Category:      state.StepData[models.DataKeyCategory],
	}
	results, err := f.searcher.FindSchemes(ctx, profile)
	if err != nil {
		return "", fmt.Errorf("scheme search failed: %w", err)
	}

	ml := state.Language == models.LanguageMalayalam
	if len(results) == 0 {
		if ml {
			return "നിങ്ങൾക്ക് അനുയോജ്യമായ പദ്ധതികളൊന്നും കണ്ടെത്താനായില്ല. ഹോമിലേക്ക് മടങ്ങാൻ ഹോം എന്ന് പറയൂ.", nil
		}
		return "I could not find matching schemes for your profile. Say go home to return.", nil
	}

	var b strings.Builder
	if ml {
		b.WriteString("നിങ്ങൾക്ക് അനുയോജ്യമായേക്കാവുന്ന പദ്ധതികൾ:")
	} else {
		b.WriteString("Here are schemes that may match your profile:")
	}
	for i, r := range results {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, r.Title)
	}
	if ml {
		b.WriteString("\nയോഗ്യത ഔദ്യോഗിക പോർട്ടലിൽ ഉറപ്പാക്കുക. ഹോമിലേക്ക് മടങ്ങാൻ ഹോം എന്ന് പറയൂ.")
	} else {
		b.WriteString("\nPlease verify eligibility on the official portal. Say go home to return.")
	}
	return b.String(), nil
}

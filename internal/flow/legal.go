package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/vaanicare/vaanicare/internal/models"
)

// LawyerSearcher finds legal aid contacts for an issue in a location.
type LawyerSearcher interface {
	FindLawyers(ctx context.Context, issue, location string) ([]models.SearchResult, error)
}

var legalIssueCandidates = []models.Candidate{
	{Label: "Property dispute", Keywords: []string{"property", "land", "ഭൂമി", "bhoomi"}},
	{Label: "Family matter", Keywords: []string{"family", "divorce", "custody", "കുടുംബം", "kudumbam"}},
	{Label: "Consumer complaint", Keywords: []string{"consumer", "refund", "ഉപഭോക്താവ്"}},
	{Label: "Employment issue", Keywords: []string{"employment", "job", "salary", "ജോലി", "joli"}},
	{Label: "Other legal help", Keywords: []string{"other", "മറ്റുള്ളവ"}},
}

// LegalFlow collects a legal issue and a location, then reads out lawyer
// search results: issue → location → results.
type LegalFlow struct {
	searcher LawyerSearcher
}

func NewLegalFlow(searcher LawyerSearcher) *LegalFlow {
	return &LegalFlow{searcher: searcher}
}

func (f *LegalFlow) Service() models.ServiceType { return models.ServiceLegal }

func (f *LegalFlow) Steps() []Step {
	return []Step{
		{ID: models.StepLegalIssue},
		{ID: models.StepLegalLocation, FreeText: true},
		{ID: models.StepLegalResults, Terminal: true},
	}
}

func (f *LegalFlow) Candidates(state *models.FlowState, step Step) []models.Candidate {
	if step.ID == models.StepLegalIssue {
		return legalIssueCandidates
	}
	return nil
}

func (f *LegalFlow) Announce(state *models.FlowState, step Step) string {
	ml := state.Language == models.LanguageMalayalam
	switch step.ID {
	case models.StepLegalIssue:
		body := "What kind of legal help do you need? Say the number or describe the issue."
		if ml {
			body = "എന്ത് തരം നിയമ സഹായമാണ് വേണ്ടത്? നമ്പർ പറയൂ അല്ലെങ്കിൽ പ്രശ്നം വിവരിക്കൂ."
		}
		return formatOptions(body, legalIssueCandidates)
	case models.StepLegalLocation:
		if ml {
			return "നിങ്ങളുടെ ജില്ലയോ നഗരമോ പറയൂ."
		}
		return "Which district or city are you in?"
	}
	return ""
}

func (f *LegalFlow) Apply(ctx context.Context, state *models.FlowState, step Step, answer string) error {
	switch step.ID {
	case models.StepLegalIssue:
		state.StepData[models.DataKeyIssue] = answer
		return nil
	case models.StepLegalLocation:
		state.StepData[models.DataKeyLocation] = answer
		return nil
	}
	return fmt.Errorf("step %s does not accept answers", step.ID)
}

// Finalize runs the lawyer search and renders results as a spoken summary.
func (f *LegalFlow) Finalize(ctx context.Context, state *models.FlowState) (string, error) {
	issue := state.StepData[models.DataKeyIssue]
	location := state.StepData[models.DataKeyLocation]
	results, err := f.searcher.FindLawyers(ctx, issue, location)
	if err != nil {
		return "", fmt.Errorf("lawyer search failed: %w", err)
	}

	ml := state.Language == models.LanguageMalayalam
	if len(results) == 0 {
		if ml {
			return fmt.Sprintf("%s-ൽ %s-നായി ഫലങ്ങളൊന്നും കിട്ടിയില്ല. മറ്റൊരു സ്ഥലം പരീക്ഷിക്കാൻ തിരികെ എന്ന് പറയൂ.", location, issue), nil
		}
		return fmt.Sprintf("I could not find results for %s in %s. Say go back to try another location.", issue, location), nil
	}

	var b strings.Builder
	if ml {
		fmt.Fprintf(&b, "%s-ൽ %s-നുള്ള സഹായം:", location, issue)
	} else {
		fmt.Fprintf(&b, "Here is legal help for %s in %s:", issue, location)
	}
	for i, r := range results {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, r.Title)
	}
	if ml {
		b.WriteString("\nഹോമിലേക്ക് മടങ്ങാൻ ഹോം എന്ന് പറയൂ.")
	} else {
		b.WriteString("\nSay go home to return.")
	}
	return b.String(), nil
}

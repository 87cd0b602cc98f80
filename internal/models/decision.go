// Package models defines router decision structures shared across modules.
package models

// DecisionKind classifies the outcome of routing a transcript.
type DecisionKind string

const (
	// DecisionGoHome navigates out of every flow back to service selection.
	DecisionGoHome DecisionKind = "go_home"
	// DecisionGoBack rewinds to the previous step, or exits on the first step.
	DecisionGoBack DecisionKind = "go_back"
	// DecisionConfirm confirms the pending selection; only valid on a confirm step.
	DecisionConfirm DecisionKind = "confirm"
	// DecisionSelect picks one candidate from the current step's list.
	DecisionSelect DecisionKind = "select"
	// DecisionNoMatch means the transcript matched nothing; the caller re-prompts.
	DecisionNoMatch DecisionKind = "no_match"
)

// Decision is the router's output for one finalized transcript.
// For DecisionSelect, Index is the 0-based position in the candidate list
// and Candidate carries the matched label.
type Decision struct {
	Kind      DecisionKind `json:"kind"`
	Index     int          `json:"index,omitempty"`
	Candidate string       `json:"candidate,omitempty"`
}

// Candidate is one selectable option visible at the current step. Keywords
// holds extra literal forms that should match the candidate beyond its label
// (e.g. a localized name).
type Candidate struct {
	Label    string   `json:"label"`
	Keywords []string `json:"keywords,omitempty"`
}

// Transcript is a speech-recognition result. Only final transcripts are
// routed; interim ones may still change and are discarded by the server.
type Transcript struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

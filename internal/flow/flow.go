// Package flow implements the conversational step sequencer and the three
// service flows (healthcare booking, legal aid, government schemes).
//
// Each flow is an ordered sequence of named steps; exactly one step is
// active per session. The sequencer applies router decisions to move
// through the steps and drives the external speech collaborators: on every
// step entry it announces the step's choices fully before re-enabling
// listening, because overlapping synthesis and recognition causes the
// browser APIs to hear themselves.
package flow

import (
	"context"
	"fmt"

	"github.com/vaanicare/vaanicare/internal/models"
)

// Step describes one stage of a flow and how the router should treat it.
type Step struct {
	ID models.StepType
	// FreeText steps accept any non-empty transcript as the answer when no
	// command or candidate matched.
	FreeText bool
	// TimeSlots marks candidate labels as clock slots for AM/PM matching.
	TimeSlots bool
	// Confirm marks the confirmation step; confirm keywords are honored
	// only here.
	Confirm bool
	// Terminal steps end the flow; entering one runs Finalize and the only
	// way out is a home/back command.
	Terminal bool
}

// Definition describes one service's conversational flow.
type Definition interface {
	// Service identifies the flow.
	Service() models.ServiceType
	// Steps returns the ordered step sequence.
	Steps() []Step
	// Candidates returns the selectable options for a step given the
	// session's collected data.
	Candidates(state *models.FlowState, step Step) []models.Candidate
	// Announce returns the spoken description of a step's choices in the
	// session language.
	Announce(state *models.FlowState, step Step) string
	// Apply binds a selection or free-text answer to the step. Selections
	// are immutable once the flow advances past them; rewinding and
	// re-selecting overwrites.
	Apply(ctx context.Context, state *models.FlowState, step Step, answer string) error
	// Finalize runs the flow's terminal action (booking, lookup) and
	// returns the announcement for the terminal step.
	Finalize(ctx context.Context, state *models.FlowState) (string, error)
}

// Voice is the external speech collaborator. Speak must fully complete
// before Listen is invoked; the sequencer serializes the two.
type Voice interface {
	Speak(ctx context.Context, sessionID, text string, lang models.Language) error
	Listen(ctx context.Context, sessionID string) error
}

// Exiter leaves the active flow back to service selection. Invoked exactly
// once per exit (home command, or back on the first or terminal step).
type Exiter interface {
	ExitFlow(ctx context.Context, sessionID string) error
}

// StateManager persists per-session flow state.
type StateManager interface {
	GetState(ctx context.Context, sessionID string) (*models.FlowState, error)
	SaveState(ctx context.Context, state *models.FlowState) error
	SetStateData(ctx context.Context, sessionID string, key models.DataKey, value string) error
	ResetState(ctx context.Context, sessionID string) error
}

var registry = make(map[models.ServiceType]Definition)

// Register associates a ServiceType with a flow Definition.
func Register(def Definition) {
	registry[def.Service()] = def
}

// Get retrieves the Definition for a service.
func Get(service models.ServiceType) (Definition, bool) {
	def, ok := registry[service]
	return def, ok
}

// stepIndex finds a step's position in a definition's sequence.
func stepIndex(steps []Step, id models.StepType) (int, error) {
	for i, s := range steps {
		if s.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("step %s not part of flow", id)
}

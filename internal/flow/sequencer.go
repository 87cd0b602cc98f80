package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vaanicare/vaanicare/internal/models"
	"github.com/vaanicare/vaanicare/internal/router"
)

// Sequencer holds the ordered steps of the active flow for each session and
// advances or rewinds them on router decisions. It owns no speech machinery
// itself; announcements and listening go through the Voice collaborator,
// flow exits through the Exiter.
type Sequencer struct {
	stateManager StateManager
	voice        Voice
	exiter       Exiter
}

// NewSequencer creates a Sequencer with its collaborators.
func NewSequencer(stateManager StateManager, voice Voice, exiter Exiter) *Sequencer {
	return &Sequencer{stateManager: stateManager, voice: voice, exiter: exiter}
}

// StartSession creates fresh state for a session at the flow's first step
// and announces it. A new session always starts with empty selections.
func (s *Sequencer) StartSession(ctx context.Context, sessionID string, service models.ServiceType, lang models.Language) (models.SessionTurn, error) {
	def, ok := Get(service)
	if !ok {
		return models.SessionTurn{}, fmt.Errorf("no flow registered for service %s", service)
	}

	first := def.Steps()[0]
	state := &models.FlowState{
		SessionID:   sessionID,
		Service:     service,
		Language:    lang,
		CurrentStep: first.ID,
		StepData:    make(map[models.DataKey]string),
	}
	if err := s.stateManager.SaveState(ctx, state); err != nil {
		return models.SessionTurn{}, err
	}

	slog.Info("Sequencer session started", "sessionID", sessionID, "service", service, "language", lang)
	return s.enterStep(ctx, def, state, first, def.Announce(state, first))
}

// ProcessTranscript routes one finalized transcript against the session's
// current step and applies the resulting decision. Interim transcripts are
// ignored; they may still change.
func (s *Sequencer) ProcessTranscript(ctx context.Context, sessionID string, tr models.Transcript) (models.SessionTurn, error) {
	if !tr.Final {
		slog.Debug("Sequencer ignoring interim transcript", "sessionID", sessionID)
		return models.SessionTurn{SessionID: sessionID, Listen: true}, nil
	}

	state, err := s.stateManager.GetState(ctx, sessionID)
	if err != nil {
		return models.SessionTurn{}, err
	}
	if state == nil {
		return models.SessionTurn{}, models.ErrSessionNotFound
	}

	def, ok := Get(state.Service)
	if !ok {
		return models.SessionTurn{}, fmt.Errorf("no flow registered for service %s", state.Service)
	}
	steps := def.Steps()
	idx, err := stepIndex(steps, state.CurrentStep)
	if err != nil {
		return models.SessionTurn{}, err
	}
	step := steps[idx]
	candidates := def.Candidates(state, step)

	decision := router.Route(router.Request{
		Transcript:   tr.Text,
		Step:         step.ID,
		Language:     state.Language,
		Candidates:   candidates,
		AllowConfirm: step.Confirm,
		TimeSlots:    step.TimeSlots,
	})
	slog.Debug("Sequencer routed transcript", "sessionID", sessionID, "step", step.ID, "decision", decision.Kind)

	switch decision.Kind {
	case models.DecisionGoHome:
		return s.exitFlow(ctx, sessionID, state.Language, decision.Kind)

	case models.DecisionGoBack:
		// Back on the first step or a terminal step leaves the flow; it is
		// not a local step decrement.
		if idx == 0 || step.Terminal {
			return s.exitFlow(ctx, sessionID, state.Language, decision.Kind)
		}
		prev := steps[idx-1]
		state.CurrentStep = prev.ID
		if err := s.stateManager.SaveState(ctx, state); err != nil {
			return models.SessionTurn{}, err
		}
		turn, err := s.enterStep(ctx, def, state, prev, def.Announce(state, prev))
		turn.Decision = decision.Kind
		return turn, err

	case models.DecisionConfirm:
		return s.finalize(ctx, def, state, steps, idx, decision.Kind)

	case models.DecisionSelect:
		if err := def.Apply(ctx, state, step, decision.Candidate); err != nil {
			slog.Error("Sequencer apply failed", "error", err, "sessionID", sessionID, "step", step.ID)
			return s.retry(ctx, state, step, decision.Kind)
		}
		return s.advance(ctx, def, state, steps, idx, decision.Kind)

	default: // no match
		// Free-text steps take the raw transcript as the answer.
		if step.FreeText && strings.TrimSpace(tr.Text) != "" {
			if err := def.Apply(ctx, state, step, strings.TrimSpace(tr.Text)); err != nil {
				slog.Error("Sequencer free-text apply failed", "error", err, "sessionID", sessionID, "step", step.ID)
				return s.retry(ctx, state, step, models.DecisionNoMatch)
			}
			return s.advance(ctx, def, state, steps, idx, models.DecisionSelect)
		}
		// The step does not change; re-announce and listen again.
		return s.retry(ctx, state, step, models.DecisionNoMatch)
	}
}

// EndSession tears down a session without an announcement (explicit DELETE).
func (s *Sequencer) EndSession(ctx context.Context, sessionID string) error {
	return s.stateManager.ResetState(ctx, sessionID)
}

// advance moves past the current step. Entering a terminal step runs the
// flow's Finalize action for its announcement.
func (s *Sequencer) advance(ctx context.Context, def Definition, state *models.FlowState, steps []Step, idx int, kind models.DecisionKind) (models.SessionTurn, error) {
	if idx+1 >= len(steps) || steps[idx+1].Terminal {
		return s.finalize(ctx, def, state, steps, idx, kind)
	}
	next := steps[idx+1]
	state.CurrentStep = next.ID
	if err := s.stateManager.SaveState(ctx, state); err != nil {
		return models.SessionTurn{}, err
	}
	turn, err := s.enterStep(ctx, def, state, next, def.Announce(state, next))
	turn.Decision = kind
	return turn, err
}

// finalize runs the flow's terminal action and, only once it succeeds, moves
// the session to the terminal step. A failed booking or search keeps the
// session on its current step, so repeating the same command retries the
// action after the collaborator recovers.
func (s *Sequencer) finalize(ctx context.Context, def Definition, state *models.FlowState, steps []Step, idx int, kind models.DecisionKind) (models.SessionTurn, error) {
	if err := s.stateManager.SaveState(ctx, state); err != nil {
		return models.SessionTurn{}, err
	}

	announcement, err := def.Finalize(ctx, state)
	if err != nil {
		// Endpoint failures become a spoken fallback, never a raw error.
		slog.Error("Sequencer finalize failed", "error", err, "sessionID", state.SessionID, "service", state.Service)
		turn, enterErr := s.enterStep(ctx, def, state, steps[idx], RetryPhrase(state.Language))
		turn.Decision = kind
		return turn, enterErr
	}

	terminal := steps[len(steps)-1]
	state.CurrentStep = terminal.ID
	if err := s.stateManager.SaveState(ctx, state); err != nil {
		return models.SessionTurn{}, err
	}
	turn, enterErr := s.enterStep(ctx, def, state, terminal, announcement)
	turn.Decision = kind
	turn.Done = true
	return turn, enterErr
}

// retry re-announces a fixed retry phrase and re-opens listening without
// changing the step.
func (s *Sequencer) retry(ctx context.Context, state *models.FlowState, step Step, kind models.DecisionKind) (models.SessionTurn, error) {
	if err := s.voice.Speak(ctx, state.SessionID, RetryPhrase(state.Language), state.Language); err != nil {
		return models.SessionTurn{}, err
	}
	if err := s.voice.Listen(ctx, state.SessionID); err != nil {
		return models.SessionTurn{}, err
	}
	return models.SessionTurn{
		SessionID: state.SessionID,
		Step:      step.ID,
		Speak:     RetryPhrase(state.Language),
		Listen:    true,
		Decision:  kind,
	}, nil
}

// exitFlow tears down the session and invokes the exit collaborator exactly
// once. Listening is not re-enabled; the flow is over.
func (s *Sequencer) exitFlow(ctx context.Context, sessionID string, lang models.Language, kind models.DecisionKind) (models.SessionTurn, error) {
	if err := s.stateManager.ResetState(ctx, sessionID); err != nil {
		return models.SessionTurn{}, err
	}
	if err := s.voice.Speak(ctx, sessionID, ExitPhrase(lang), lang); err != nil {
		return models.SessionTurn{}, err
	}
	if err := s.exiter.ExitFlow(ctx, sessionID); err != nil {
		return models.SessionTurn{}, err
	}
	slog.Info("Sequencer session exited", "sessionID", sessionID, "decision", kind)
	return models.SessionTurn{
		SessionID: sessionID,
		Speak:     ExitPhrase(lang),
		Listen:    false,
		Decision:  kind,
		Exited:    true,
	}, nil
}

// enterStep announces a step and then re-enables listening. Speak completes
// before Listen starts; the two must never overlap.
func (s *Sequencer) enterStep(ctx context.Context, def Definition, state *models.FlowState, step Step, announcement string) (models.SessionTurn, error) {
	if err := s.voice.Speak(ctx, state.SessionID, announcement, state.Language); err != nil {
		return models.SessionTurn{}, err
	}
	if err := s.voice.Listen(ctx, state.SessionID); err != nil {
		return models.SessionTurn{}, err
	}
	return models.SessionTurn{
		SessionID:  state.SessionID,
		Step:       step.ID,
		Speak:      announcement,
		Listen:     true,
		Candidates: def.Candidates(state, step),
	}, nil
}

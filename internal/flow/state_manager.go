// Package flow provides concrete implementations of state management.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/vaanicare/vaanicare/internal/models"
	"github.com/vaanicare/vaanicare/internal/store"
)

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// GetState retrieves the flow state for a session. Returns nil when the
// session does not exist.
func (sm *StoreBasedStateManager) GetState(ctx context.Context, sessionID string) (*models.FlowState, error) {
	slog.Debug("StateManager GetState", "sessionID", sessionID)

	state, err := sm.store.GetFlowState(sessionID)
	if err != nil {
		slog.Error("StateManager GetState error", "error", err, "sessionID", sessionID)
		return nil, err
	}
	if state == nil {
		slog.Debug("StateManager GetState not found", "sessionID", sessionID)
		return nil, nil
	}
	return state, nil
}

// SaveState stores or updates the flow state for a session.
func (sm *StoreBasedStateManager) SaveState(ctx context.Context, state *models.FlowState) error {
	slog.Debug("StateManager SaveState", "sessionID", state.SessionID, "service", state.Service, "step", state.CurrentStep)

	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
	if state.StepData == nil {
		state.StepData = make(map[models.DataKey]string)
	}

	if err := sm.store.SaveFlowState(*state); err != nil {
		slog.Error("StateManager SaveState error", "error", err, "sessionID", state.SessionID)
		return err
	}
	return nil
}

// SetStateData stores one data value for a session's current flow.
func (sm *StoreBasedStateManager) SetStateData(ctx context.Context, sessionID string, key models.DataKey, value string) error {
	slog.Debug("StateManager SetStateData", "sessionID", sessionID, "key", key)

	state, err := sm.store.GetFlowState(sessionID)
	if err != nil {
		slog.Error("StateManager SetStateData get error", "error", err, "sessionID", sessionID, "key", key)
		return err
	}
	if state == nil {
		slog.Error("StateManager SetStateData missing session", "sessionID", sessionID, "key", key)
		return models.ErrSessionNotFound
	}
	if state.StepData == nil {
		state.StepData = make(map[models.DataKey]string)
	}
	state.StepData[key] = value
	state.UpdatedAt = time.Now()

	if err := sm.store.SaveFlowState(*state); err != nil {
		slog.Error("StateManager SetStateData save error", "error", err, "sessionID", sessionID, "key", key)
		return err
	}
	return nil
}

// ResetState removes all state for a session.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, sessionID string) error {
	slog.Debug("StateManager ResetState", "sessionID", sessionID)

	if err := sm.store.DeleteFlowState(sessionID); err != nil {
		slog.Error("StateManager ResetState error", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Info("StateManager ResetState succeeded", "sessionID", sessionID)
	return nil
}

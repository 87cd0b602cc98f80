// Package store provides storage backends for VaaniCare.
//
// It includes an in-memory store for development and tests, plus SQLite,
// PostgreSQL, and Redis backends for session state, bookings, and the
// transcript log.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/vaanicare/vaanicare/internal/models"
)

// Store is the persistence surface used by the flow and API layers.
// Sessions are ephemeral; GetFlowState returns (nil, nil) for an unknown
// session rather than an error.
type Store interface {
	SaveFlowState(state models.FlowState) error
	GetFlowState(sessionID string) (*models.FlowState, error)
	DeleteFlowState(sessionID string) error
	// DeleteStaleFlowStates removes sessions not updated since the cutoff
	// and reports how many were removed. Backends with native expiry may
	// treat this as a no-op.
	DeleteStaleFlowStates(cutoff time.Time) (int64, error)

	AddBooking(b models.Booking) error
	GetBookings() ([]models.Booking, error)

	AddTranscript(t models.TranscriptRecord) error
	GetTranscripts(sessionID string) ([]models.TranscriptRecord, error)

	Close() error
}

// InMemoryStore is the default backend when no DSN is configured.
type InMemoryStore struct {
	mu          sync.RWMutex
	flowStates  map[string]models.FlowState
	bookings    []models.Booking
	transcripts map[string][]models.TranscriptRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		flowStates:  make(map[string]models.FlowState),
		transcripts: make(map[string][]models.TranscriptRecord),
	}
}

func (s *InMemoryStore) SaveFlowState(state models.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowStates[state.SessionID] = state
	return nil
}

func (s *InMemoryStore) GetFlowState(sessionID string) (*models.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.flowStates[sessionID]
	if !ok {
		return nil, nil
	}
	cp := state
	cp.StepData = make(map[models.DataKey]string, len(state.StepData))
	for k, v := range state.StepData {
		cp.StepData[k] = v
	}
	return &cp, nil
}

func (s *InMemoryStore) DeleteFlowState(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowStates, sessionID)
	return nil
}

func (s *InMemoryStore) DeleteStaleFlowStates(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, state := range s.flowStates {
		if state.UpdatedAt.Before(cutoff) {
			delete(s.flowStates, id)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) AddBooking(b models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, b)
	return nil
}

func (s *InMemoryStore) GetBookings() ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out, nil
}

func (s *InMemoryStore) AddTranscript(t models.TranscriptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[t.SessionID] = append(s.transcripts[t.SessionID], t)
	return nil
}

func (s *InMemoryStore) GetTranscripts(sessionID string) ([]models.TranscriptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.transcripts[sessionID]
	out := make([]models.TranscriptRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

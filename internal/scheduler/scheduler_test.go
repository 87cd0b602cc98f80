package scheduler

import (
	"testing"
	"time"

	"github.com/vaanicare/vaanicare/internal/models"
	"github.com/vaanicare/vaanicare/internal/store"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerAddJobInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron expression", func() {}); err == nil {
		t.Error("Expected an error for an invalid cron expression")
	}
}

func TestScheduleSessionSweep(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.ScheduleSessionSweep(store.NewInMemoryStore()); err != nil {
		t.Errorf("Expected no error scheduling the session sweep, got %v", err)
	}
}

func TestSessionSweepRemovesStaleSessions(t *testing.T) {
	st := store.NewInMemoryStore()
	stale := models.FlowState{
		SessionID:   "stale",
		Service:     models.ServiceHealthcare,
		Language:    models.LanguageEnglish,
		CurrentStep: models.StepSpecialty,
		UpdatedAt:   time.Now().Add(-2 * store.SessionTTL),
	}
	fresh := stale
	fresh.SessionID = "fresh"
	fresh.UpdatedAt = time.Now()
	if err := st.SaveFlowState(stale); err != nil {
		t.Fatalf("SaveFlowState failed: %v", err)
	}
	if err := st.SaveFlowState(fresh); err != nil {
		t.Fatalf("SaveFlowState failed: %v", err)
	}

	removed, err := st.DeleteStaleFlowStates(time.Now().Add(-store.SessionTTL))
	if err != nil {
		t.Fatalf("DeleteStaleFlowStates failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 stale session removed, got %d", removed)
	}
	state, err := st.GetFlowState("fresh")
	if err != nil || state == nil {
		t.Errorf("fresh session must survive the sweep, got state=%v err=%v", state, err)
	}
}

// Package scheduler provides scheduling logic for VaaniCare.
//
// It runs periodic maintenance jobs, such as sweeping stale voice sessions
// out of the store, using cron expressions.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vaanicare/vaanicare/internal/store"
)

// SessionSweepSchedule runs the stale-session sweep every ten minutes.
const SessionSweepSchedule = "*/10 * * * *"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// ScheduleSessionSweep registers the periodic removal of sessions that have
// not been touched within the store's session TTL. Abandoned mid-flow
// sessions would otherwise accumulate in the SQL backends.
func (s *Scheduler) ScheduleSessionSweep(st store.Store) error {
	return s.AddJob(SessionSweepSchedule, func() {
		cutoff := time.Now().Add(-store.SessionTTL)
		removed, err := st.DeleteStaleFlowStates(cutoff)
		if err != nil {
			slog.Error("Scheduler session sweep failed", "error", err)
			return
		}
		if removed > 0 {
			slog.Info("Scheduler session sweep removed stale sessions", "removed", removed)
		}
	})
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

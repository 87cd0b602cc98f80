// Package store provides storage backends for VaaniCare.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/vaanicare/vaanicare/internal/models"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveFlowState stores or updates flow state for a session.
func (s *PostgresStore) SaveFlowState(state models.FlowState) error {
	stepDataJSON, err := marshalStepData(state.StepData)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState JSON marshal failed", "error", err, "sessionID", state.SessionID)
		return err
	}

	query := `
		INSERT INTO flow_states (session_id, service, language, current_step, step_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			service = EXCLUDED.service,
			language = EXCLUDED.language,
			current_step = EXCLUDED.current_step,
			step_data = EXCLUDED.step_data,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.Exec(query, state.SessionID, state.Service, state.Language,
		state.CurrentStep, stepDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "service", state.Service)
		return err
	}
	slog.Debug("PostgresStore SaveFlowState succeeded", "sessionID", state.SessionID, "service", state.Service, "step", state.CurrentStep)
	return nil
}

// GetFlowState retrieves flow state for a session.
func (s *PostgresStore) GetFlowState(sessionID string) (*models.FlowState, error) {
	query := `SELECT session_id, service, language, current_step, step_data, created_at, updated_at
			  FROM flow_states WHERE session_id = $1`

	var state models.FlowState
	var stepDataJSON string

	err := s.db.QueryRow(query, sessionID).Scan(
		&state.SessionID, &state.Service, &state.Language, &state.CurrentStep,
		&stepDataJSON, &state.CreatedAt, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetFlowState not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlowState failed", "error", err, "sessionID", sessionID)
		return nil, err
	}

	state.StepData = unmarshalStepData(stepDataJSON, sessionID)
	slog.Debug("PostgresStore GetFlowState found", "sessionID", sessionID, "step", state.CurrentStep)
	return &state, nil
}

// DeleteFlowState removes flow state for a session.
func (s *PostgresStore) DeleteFlowState(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore DeleteFlowState failed", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Debug("PostgresStore DeleteFlowState succeeded", "sessionID", sessionID)
	return nil
}

// DeleteStaleFlowStates removes sessions last touched before the cutoff.
func (s *PostgresStore) DeleteStaleFlowStates(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM flow_states WHERE updated_at < $1`, cutoff)
	if err != nil {
		slog.Error("PostgresStore DeleteStaleFlowStates failed", "error", err)
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Debug("PostgresStore DeleteStaleFlowStates succeeded", "removed", removed)
	return removed, nil
}

func (s *PostgresStore) AddBooking(b models.Booking) error {
	_, err := s.db.Exec(
		`INSERT INTO bookings (id, doctor_specialty, preferred_date, preferred_time, patient_name, patient_phone, confirmation, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.DoctorSpecialty, b.PreferredDate, b.PreferredTime,
		b.PatientName, b.PatientPhone, b.Confirmation, b.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddBooking failed", "error", err, "bookingID", b.ID)
		return fmt.Errorf("failed to insert booking %s: %w", b.ID, err)
	}
	slog.Debug("PostgresStore AddBooking succeeded", "bookingID", b.ID, "specialty", b.DoctorSpecialty)
	return nil
}

func (s *PostgresStore) GetBookings() ([]models.Booking, error) {
	rows, err := s.db.Query(
		`SELECT id, doctor_specialty, preferred_date, preferred_time, patient_name, patient_phone, confirmation, created_at
		 FROM bookings ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore GetBookings query failed", "error", err)
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.DoctorSpecialty, &b.PreferredDate, &b.PreferredTime,
			&b.PatientName, &b.PatientPhone, &b.Confirmation, &b.CreatedAt); err != nil {
			slog.Error("PostgresStore GetBookings scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetBookings rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate booking rows: %w", err)
	}
	slog.Debug("PostgresStore GetBookings succeeded", "count", len(bookings))
	return bookings, nil
}

func (s *PostgresStore) AddTranscript(t models.TranscriptRecord) error {
	_, err := s.db.Exec(`INSERT INTO transcripts (session_id, text, language, time) VALUES ($1, $2, $3, $4)`,
		t.SessionID, t.Text, t.Language, t.Time)
	if err != nil {
		slog.Error("PostgresStore AddTranscript failed", "error", err, "sessionID", t.SessionID)
		return fmt.Errorf("failed to insert transcript for %s: %w", t.SessionID, err)
	}
	slog.Debug("PostgresStore AddTranscript succeeded", "sessionID", t.SessionID)
	return nil
}

func (s *PostgresStore) GetTranscripts(sessionID string) ([]models.TranscriptRecord, error) {
	rows, err := s.db.Query(`SELECT session_id, text, language, time FROM transcripts WHERE session_id = $1 ORDER BY time`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetTranscripts query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var records []models.TranscriptRecord
	for rows.Next() {
		var t models.TranscriptRecord
		if err := rows.Scan(&t.SessionID, &t.Text, &t.Language, &t.Time); err != nil {
			slog.Error("PostgresStore GetTranscripts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetTranscripts rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate transcript rows: %w", err)
	}
	slog.Debug("PostgresStore GetTranscripts succeeded", "sessionID", sessionID, "count", len(records))
	return records, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}

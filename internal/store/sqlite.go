// Package store provides storage backends for VaaniCare.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vaanicare/vaanicare/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveFlowState stores or updates flow state for a session.
func (s *SQLiteStore) SaveFlowState(state models.FlowState) error {
	stepDataJSON, err := marshalStepData(state.StepData)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState JSON marshal failed", "error", err, "sessionID", state.SessionID)
		return err
	}

	query := `
		INSERT OR REPLACE INTO flow_states (session_id, service, language, current_step, step_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, state.SessionID, state.Service, state.Language,
		state.CurrentStep, stepDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "service", state.Service)
		return err
	}
	slog.Debug("SQLiteStore SaveFlowState succeeded", "sessionID", state.SessionID, "service", state.Service, "step", state.CurrentStep)
	return nil
}

// GetFlowState retrieves flow state for a session.
func (s *SQLiteStore) GetFlowState(sessionID string) (*models.FlowState, error) {
	query := `SELECT session_id, service, language, current_step, step_data, created_at, updated_at
			  FROM flow_states WHERE session_id = ?`

	var state models.FlowState
	var stepDataJSON string

	err := s.db.QueryRow(query, sessionID).Scan(
		&state.SessionID, &state.Service, &state.Language, &state.CurrentStep,
		&stepDataJSON, &state.CreatedAt, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetFlowState not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlowState failed", "error", err, "sessionID", sessionID)
		return nil, err
	}

	state.StepData = unmarshalStepData(stepDataJSON, sessionID)
	slog.Debug("SQLiteStore GetFlowState found", "sessionID", sessionID, "step", state.CurrentStep)
	return &state, nil
}

// DeleteFlowState removes flow state for a session.
func (s *SQLiteStore) DeleteFlowState(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE session_id = ?`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore DeleteFlowState failed", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Debug("SQLiteStore DeleteFlowState succeeded", "sessionID", sessionID)
	return nil
}

// DeleteStaleFlowStates removes sessions last touched before the cutoff.
func (s *SQLiteStore) DeleteStaleFlowStates(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM flow_states WHERE updated_at < ?`, cutoff)
	if err != nil {
		slog.Error("SQLiteStore DeleteStaleFlowStates failed", "error", err)
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Debug("SQLiteStore DeleteStaleFlowStates succeeded", "removed", removed)
	return removed, nil
}

func (s *SQLiteStore) AddBooking(b models.Booking) error {
	_, err := s.db.Exec(
		`INSERT INTO bookings (id, doctor_specialty, preferred_date, preferred_time, patient_name, patient_phone, confirmation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.DoctorSpecialty, b.PreferredDate, b.PreferredTime,
		b.PatientName, b.PatientPhone, b.Confirmation, b.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddBooking failed", "error", err, "bookingID", b.ID)
		return fmt.Errorf("failed to insert booking %s: %w", b.ID, err)
	}
	slog.Debug("SQLiteStore AddBooking succeeded", "bookingID", b.ID, "specialty", b.DoctorSpecialty)
	return nil
}

func (s *SQLiteStore) GetBookings() ([]models.Booking, error) {
	rows, err := s.db.Query(
		`SELECT id, doctor_specialty, preferred_date, preferred_time, patient_name, patient_phone, confirmation, created_at
		 FROM bookings ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore GetBookings query failed", "error", err)
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.DoctorSpecialty, &b.PreferredDate, &b.PreferredTime,
			&b.PatientName, &b.PatientPhone, &b.Confirmation, &b.CreatedAt); err != nil {
			slog.Error("SQLiteStore GetBookings scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetBookings rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate booking rows: %w", err)
	}
	slog.Debug("SQLiteStore GetBookings succeeded", "count", len(bookings))
	return bookings, nil
}

func (s *SQLiteStore) AddTranscript(t models.TranscriptRecord) error {
	_, err := s.db.Exec(`INSERT INTO transcripts (session_id, text, language, time) VALUES (?, ?, ?, ?)`,
		t.SessionID, t.Text, t.Language, t.Time)
	if err != nil {
		slog.Error("SQLiteStore AddTranscript failed", "error", err, "sessionID", t.SessionID)
		return fmt.Errorf("failed to insert transcript for %s: %w", t.SessionID, err)
	}
	slog.Debug("SQLiteStore AddTranscript succeeded", "sessionID", t.SessionID)
	return nil
}

func (s *SQLiteStore) GetTranscripts(sessionID string) ([]models.TranscriptRecord, error) {
	rows, err := s.db.Query(`SELECT session_id, text, language, time FROM transcripts WHERE session_id = ? ORDER BY time`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetTranscripts query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var records []models.TranscriptRecord
	for rows.Next() {
		var t models.TranscriptRecord
		if err := rows.Scan(&t.SessionID, &t.Text, &t.Language, &t.Time); err != nil {
			slog.Error("SQLiteStore GetTranscripts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetTranscripts rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate transcript rows: %w", err)
	}
	slog.Debug("SQLiteStore GetTranscripts succeeded", "sessionID", sessionID, "count", len(records))
	return records, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

// marshalStepData serializes step data for a text column. Empty maps map to
// an empty string.
func marshalStepData(data map[models.DataKey]string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

// unmarshalStepData parses a step data column back to a map. Corrupt JSON
// degrades to an empty map rather than failing the read.
func unmarshalStepData(raw, sessionID string) map[models.DataKey]string {
	data := make(map[models.DataKey]string)
	if raw == "" {
		return data
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		slog.Error("Store step data unmarshal failed", "error", err, "sessionID", sessionID)
		return make(map[models.DataKey]string)
	}
	return data
}

// Package models defines state management structures for VaaniCare sessions.
package models

import "time"

// FlowState represents the current position of a voice session in a flow.
// State is scoped to one session; starting a new session resets everything.
type FlowState struct {
	SessionID   string             `json:"session_id"`
	Service     ServiceType        `json:"service"`
	Language    Language           `json:"language"`
	CurrentStep StepType           `json:"current_step"`
	StepData    map[DataKey]string `json:"step_data,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TranscriptRecord is one final transcript consumed by a session, kept for
// auditing what the router actually received.
type TranscriptRecord struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"text"`
	Language  Language `json:"language"`
	Time      int64    `json:"time"`
}

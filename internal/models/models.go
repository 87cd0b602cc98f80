// Package models defines the core data structures for VaaniCare.
//
// It includes types for doctors, bookings, extraction results, and the
// request/response shapes of the HTTP endpoints, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Validation constants for input validation
const (
	// MaxSpeechTextLength defines the maximum accepted transcript length for extraction
	MaxSpeechTextLength = 4096
	// MaxIssueLength defines the maximum accepted length for a legal issue description
	MaxIssueLength = 1024
)

// Error variables for better error handling and testability
var (
	ErrEmptySpeechText    = errors.New("speech_text cannot be empty")
	ErrSpeechTextTooLong  = errors.New("speech_text exceeds maximum length")
	ErrInvalidServiceType = errors.New("invalid service type")
	ErrInvalidLanguage    = errors.New("invalid language")
	ErrEmptyIssue         = errors.New("issue cannot be empty")
	ErrIssueTooLong       = errors.New("issue exceeds maximum length")
	ErrEmptyLocation      = errors.New("location cannot be empty")
	ErrEmptySpecialty     = errors.New("doctor_specialty is required")
	ErrEmptyDate          = errors.New("preferred_date is required")
	ErrEmptyTime          = errors.New("preferred_time is required")
	ErrEmptyState         = errors.New("state is required")
	ErrSessionNotFound    = errors.New("session not found")
)

// Doctor is static reference data for the healthcare flow. The list is
// hard-coded and read-only; slots are display strings like "9:00 AM".
type Doctor struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Specialty  string   `json:"specialty"`
	Experience int      `json:"experience_years"`
	Rating     float64  `json:"rating"`
	Fee        int      `json:"fee"`
	Slots      []string `json:"available_slots"`
}

// ExtractSpeechRequest is the payload for POST /api/extract-speech.
type ExtractSpeechRequest struct {
	SpeechText  string      `json:"speech_text"`
	ServiceType ServiceType `json:"service_type,omitempty"`
}

// Validate checks an ExtractSpeechRequest.
func (r *ExtractSpeechRequest) Validate() error {
	if r.SpeechText == "" {
		return ErrEmptySpeechText
	}
	if len(r.SpeechText) > MaxSpeechTextLength {
		return ErrSpeechTextTooLong
	}
	if r.ServiceType != "" && !IsValidServiceType(r.ServiceType) {
		return ErrInvalidServiceType
	}
	return nil
}

// ExtractedAppointment holds the fields the LLM pulls out of free speech.
// Absent fields stay empty strings; the frontend treats empty as "ask again".
type ExtractedAppointment struct {
	DoctorSpecialty string `json:"doctor_specialty"`
	PreferredDate   string `json:"preferred_date"`
	PreferredTime   string `json:"preferred_time"`
	PatientName     string `json:"patient_name"`
	PatientAge      string `json:"patient_age,omitempty"`
	PatientPhone    string `json:"patient_phone"`
	Reason          string `json:"reason,omitempty"`
	Symptoms        string `json:"symptoms,omitempty"`
}

// ExtractSpeechResponse is the reply for POST /api/extract-speech.
type ExtractSpeechResponse struct {
	Success       bool                 `json:"success"`
	ExtractedData ExtractedAppointment `json:"extracted_data"`
	Message       string               `json:"message,omitempty"`
}

// BookAppointmentRequest is the payload for POST /api/book-appointment.
type BookAppointmentRequest struct {
	DoctorSpecialty string `json:"doctor_specialty"`
	PreferredDate   string `json:"preferred_date"`
	PreferredTime   string `json:"preferred_time"`
	PatientName     string `json:"patient_name,omitempty"`
	PatientPhone    string `json:"patient_phone,omitempty"`
}

// Validate checks a BookAppointmentRequest.
func (r *BookAppointmentRequest) Validate() error {
	if r.DoctorSpecialty == "" {
		return ErrEmptySpecialty
	}
	if r.PreferredDate == "" {
		return ErrEmptyDate
	}
	if r.PreferredTime == "" {
		return ErrEmptyTime
	}
	return nil
}

// Booking is a confirmed appointment stored by the server.
type Booking struct {
	ID              string    `json:"id"`
	DoctorSpecialty string    `json:"doctor_specialty"`
	PreferredDate   string    `json:"preferred_date"`
	PreferredTime   string    `json:"preferred_time"`
	PatientName     string    `json:"patient_name,omitempty"`
	PatientPhone    string    `json:"patient_phone,omitempty"`
	Confirmation    string    `json:"confirmation,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// BookAppointmentResponse is the reply for POST /api/book-appointment.
type BookAppointmentResponse struct {
	Success      bool   `json:"success"`
	BookingID    string `json:"booking_id,omitempty"`
	Confirmation string `json:"confirmation,omitempty"`
	Message      string `json:"message,omitempty"`
}

// LegalQuery is the payload for POST /find-lawyers.
type LegalQuery struct {
	Issue    string `json:"issue"`
	Location string `json:"location"`
}

// Validate checks a LegalQuery.
func (q *LegalQuery) Validate() error {
	if q.Issue == "" {
		return ErrEmptyIssue
	}
	if len(q.Issue) > MaxIssueLength {
		return ErrIssueTooLong
	}
	if q.Location == "" {
		return ErrEmptyLocation
	}
	return nil
}

// AdviceQuery is the payload for POST /legal-advice.
type AdviceQuery struct {
	Issue    string   `json:"issue"`
	Language Language `json:"language,omitempty"`
}

// Validate checks an AdviceQuery and defaults the language to English.
func (q *AdviceQuery) Validate() error {
	if q.Issue == "" {
		return ErrEmptyIssue
	}
	if len(q.Issue) > MaxIssueLength {
		return ErrIssueTooLong
	}
	if q.Language == "" {
		q.Language = LanguageEnglish
	}
	if !IsValidLanguage(q.Language) {
		return ErrInvalidLanguage
	}
	return nil
}

// SchemeProfile is the payload for POST /find-schemes. All fields arrive as
// strings from the voice flow's free-text answers.
type SchemeProfile struct {
	Age           string `json:"age"`
	Gender        string `json:"gender"`
	State         string `json:"state"`
	IncomeBracket string `json:"income_bracket"`
	Occupation    string `json:"occupation"`
	Category      string `json:"category"`
}

// Validate checks the minimum a scheme search needs.
func (p *SchemeProfile) Validate() error {
	if p.State == "" {
		return ErrEmptyState
	}
	return nil
}

// SearchResult is one lookup hit returned by the search module.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet"`
	SourceQuery string `json:"source_query,omitempty"`
}

// SchemeSearchResponse is the reply for POST /find-schemes.
type SchemeSearchResponse struct {
	QueryState string         `json:"query_state"`
	Count      int            `json:"count"`
	Schemes    []SearchResult `json:"schemes"`
	Disclaimer string         `json:"disclaimer"`
}

// LawyerSearchResponse is the reply for POST /find-lawyers.
type LawyerSearchResponse struct {
	Issue    string         `json:"issue"`
	Location string         `json:"location"`
	Count    int            `json:"count"`
	Results  []SearchResult `json:"results"`
}

// AdviceResponse is the reply for POST /legal-advice.
type AdviceResponse struct {
	Advice string `json:"advice,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TranscribeResponse is the reply for POST /transcribe.
type TranscribeResponse struct {
	Text string `json:"text"`
}

// StartSessionRequest is the payload for POST /session.
type StartSessionRequest struct {
	Service  ServiceType `json:"service"`
	Language Language    `json:"language,omitempty"`
}

// Validate checks a StartSessionRequest and defaults the language.
func (r *StartSessionRequest) Validate() error {
	if !IsValidServiceType(r.Service) {
		return ErrInvalidServiceType
	}
	if r.Language == "" {
		r.Language = LanguageEnglish
	}
	if !IsValidLanguage(r.Language) {
		return ErrInvalidLanguage
	}
	return nil
}

// TranscriptRequest is the payload for POST /session/{id}/transcript.
type TranscriptRequest struct {
	Transcript Transcript `json:"transcript"`
}

// SessionTurn describes what the client should do after a session event:
// speak the announcement in full, then (if Listen) re-open the microphone.
// The speak-then-listen ordering avoids the synthesizer being picked up by
// the recognizer.
type SessionTurn struct {
	SessionID  string       `json:"session_id"`
	Step       StepType     `json:"step"`
	Speak      string       `json:"speak"`
	Listen     bool         `json:"listen"`
	Candidates []Candidate  `json:"candidates,omitempty"`
	Decision   DecisionKind `json:"decision,omitempty"`
	Done       bool         `json:"done,omitempty"`
	Exited     bool         `json:"exited,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Package models defines flow type definitions to avoid circular imports.
package models

// ServiceType identifies one of the assistant's conversational services.
type ServiceType string

// StepType represents a specific step within a service flow.
type StepType string

// Language selects which keyword tables the router consults.
type Language string

// DataKey represents a key for storing step-specific session data.
type DataKey string

// Service type constants.
const (
	ServiceHealthcare ServiceType = "healthcare"
	ServiceLegal      ServiceType = "legal"
	ServiceGovernment ServiceType = "government"
)

// Supported languages.
const (
	LanguageEnglish   Language = "en"
	LanguageMalayalam Language = "ml"
)

// Step constants for the healthcare booking flow.
const (
	StepSpecialty StepType = "SPECIALTY"
	StepDoctors   StepType = "DOCTORS"
	StepTime      StepType = "TIME"
	StepConfirm   StepType = "CONFIRM"
	StepSuccess   StepType = "SUCCESS"
)

// Step constants for the legal aid flow.
const (
	StepLegalIssue    StepType = "LEGAL_ISSUE"
	StepLegalLocation StepType = "LEGAL_LOCATION"
	StepLegalResults  StepType = "LEGAL_RESULTS"
)

// Step constants for the government scheme flow.
const (
	StepSchemeAge        StepType = "SCHEME_AGE"
	StepSchemeGender     StepType = "SCHEME_GENDER"
	StepSchemeState      StepType = "SCHEME_STATE"
	StepSchemeIncome     StepType = "SCHEME_INCOME"
	StepSchemeOccupation StepType = "SCHEME_OCCUPATION"
	StepSchemeCategory   StepType = "SCHEME_CATEGORY"
	StepSchemeResults    StepType = "SCHEME_RESULTS"
)

// Data key constants for session step data.
const (
	DataKeySpecialty  DataKey = "specialty"
	DataKeyDoctorID   DataKey = "doctorID"
	DataKeySlot       DataKey = "slot"
	DataKeyBookingID  DataKey = "bookingID"
	DataKeyIssue      DataKey = "issue"
	DataKeyLocation   DataKey = "location"
	DataKeyAge        DataKey = "age"
	DataKeyGender     DataKey = "gender"
	DataKeyState      DataKey = "state"
	DataKeyIncome     DataKey = "incomeBracket"
	DataKeyOccupation DataKey = "occupation"
	DataKeyCategory   DataKey = "category"
)

// IsValidServiceType checks if the given service type is supported.
func IsValidServiceType(st ServiceType) bool {
	switch st {
	case ServiceHealthcare, ServiceLegal, ServiceGovernment:
		return true
	default:
		return false
	}
}

// IsValidLanguage checks if the given language is supported.
func IsValidLanguage(l Language) bool {
	return l == LanguageEnglish || l == LanguageMalayalam
}

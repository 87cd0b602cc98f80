// Package api provides HTTP handlers for VaaniCare endpoints.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vaanicare/vaanicare/internal/genai"
	"github.com/vaanicare/vaanicare/internal/models"
	"github.com/vaanicare/vaanicare/internal/search"
)

// maxAudioUploadBytes caps the multipart form size for POST /transcribe.
const maxAudioUploadBytes = 10 << 20

func (s *Server) transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.transcribeHandler: processing transcription request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.transcribeHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.transcriber == nil {
		slog.Warn("Server.transcribeHandler: no transcriber configured")
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Transcription is not configured"))
		return
	}

	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		slog.Warn("Server.transcribeHandler: failed to parse multipart form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		slog.Warn("Server.transcribeHandler: missing audio file", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing audio file"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Server.transcribeHandler: failed to read audio file", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read audio file"))
		return
	}

	lang := models.Language(r.FormValue("language"))
	if lang == "" {
		lang = models.LanguageEnglish
	}
	if !models.IsValidLanguage(lang) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid language"))
		return
	}
	slog.Debug("Server.transcribeHandler: transcribing audio", "filename", header.Filename, "bytes", len(audio), "language", lang)

	text, err := s.transcriber.Transcribe(r.Context(), audio, lang)
	if err != nil {
		slog.Error("Server.transcribeHandler: transcription failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Transcription failed"))
		return
	}

	// Transcripts are kept per session when the client identifies one.
	if sessionID := r.FormValue("session_id"); sessionID != "" {
		record := models.TranscriptRecord{SessionID: sessionID, Text: text, Language: lang, Time: time.Now().Unix()}
		if err := s.store.AddTranscript(record); err != nil {
			slog.Warn("Server.transcribeHandler: failed to store transcript", "error", err, "sessionID", sessionID)
		}
	}

	slog.Info("Server.transcribeHandler: transcription succeeded", "chars", len(text))
	writeJSONResponse(w, http.StatusOK, models.TranscribeResponse{Text: text})
}

func (s *Server) extractSpeechHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.extractSpeechHandler: processing extraction request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.extractSpeechHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.ExtractSpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.extractSpeechHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.extractSpeechHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	extracted, err := s.genAI.ExtractAppointment(r.Context(), req.SpeechText)
	if err != nil {
		// Upstream LLM failures surface as an unsuccessful extraction, not
		// as a raw error code.
		slog.Error("Server.extractSpeechHandler: extraction failed", "error", err)
		writeJSONResponse(w, http.StatusOK, models.ExtractSpeechResponse{
			Success: false,
			Message: "Could not understand the appointment details. Please try again.",
		})
		return
	}

	missing := genai.MissingFields(extracted)
	var message string
	if len(missing) > 0 {
		message, err = s.genAI.ClarificationQuestions(r.Context(), missing)
		if err != nil {
			slog.Warn("Server.extractSpeechHandler: failed to generate clarification questions", "error", err)
			message = "Please also tell me: " + strings.Join(missing, ", ")
		}
	}

	slog.Info("Server.extractSpeechHandler: extraction completed", "missing_fields", len(missing))
	writeJSONResponse(w, http.StatusOK, models.ExtractSpeechResponse{
		Success:       len(missing) == 0,
		ExtractedData: extracted,
		Message:       message,
	})
}

func (s *Server) bookAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.bookAppointmentHandler: processing booking request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.bookAppointmentHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.bookAppointmentHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.bookAppointmentHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	booking, err := s.Book(r.Context(), req)
	if err != nil {
		slog.Error("Server.bookAppointmentHandler: booking failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to book appointment"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.BookAppointmentResponse{
		Success:      true,
		BookingID:    booking.ID,
		Confirmation: booking.Confirmation,
		Message:      "Appointment booked successfully",
	})
}

func (s *Server) findLawyersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.findLawyersHandler: processing lawyer search", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.findLawyersHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var q models.LegalQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		slog.Warn("Server.findLawyersHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := q.Validate(); err != nil {
		slog.Warn("Server.findLawyersHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	results, err := s.searcher.FindLawyers(r.Context(), q.Issue, q.Location)
	if err != nil {
		slog.Error("Server.findLawyersHandler: lawyer search failed", "error", err, "issue", q.Issue, "location", q.Location)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Lawyer lookup failed"))
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	slog.Info("Server.findLawyersHandler: lawyer search completed", "count", len(results), "location", q.Location)
	writeJSONResponse(w, http.StatusOK, models.LawyerSearchResponse{
		Issue:    q.Issue,
		Location: q.Location,
		Count:    len(results),
		Results:  results,
	})
}

func (s *Server) legalAdviceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.legalAdviceHandler: processing advice request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.legalAdviceHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var q models.AdviceQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		slog.Warn("Server.legalAdviceHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := q.Validate(); err != nil {
		slog.Warn("Server.legalAdviceHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.AdviceResponse{Error: err.Error()})
		return
	}

	advice, err := s.genAI.LegalAdvice(r.Context(), q.Issue, q.Language)
	if err != nil {
		// Advice failures stay inside the response body; the client reads
		// the error field aloud.
		slog.Error("Server.legalAdviceHandler: advice generation failed", "error", err)
		writeJSONResponse(w, http.StatusOK, models.AdviceResponse{Error: "Could not generate advice right now. Please try again."})
		return
	}

	slog.Info("Server.legalAdviceHandler: advice generated", "chars", len(advice), "language", q.Language)
	writeJSONResponse(w, http.StatusOK, models.AdviceResponse{Advice: advice})
}

func (s *Server) findSchemesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.findSchemesHandler: processing scheme search", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.findSchemesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var profile models.SchemeProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		slog.Warn("Server.findSchemesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := profile.Validate(); err != nil {
		slog.Warn("Server.findSchemesHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	schemes, err := s.searcher.FindSchemes(r.Context(), profile)
	if err != nil {
		slog.Error("Server.findSchemesHandler: scheme search failed", "error", err, "state", profile.State)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Scheme lookup failed"))
		return
	}
	if schemes == nil {
		schemes = []models.SearchResult{}
	}

	slog.Info("Server.findSchemesHandler: scheme search completed", "count", len(schemes), "state", profile.State)
	writeJSONResponse(w, http.StatusOK, models.SchemeSearchResponse{
		QueryState: profile.State,
		Count:      len(schemes),
		Schemes:    schemes,
		Disclaimer: search.Disclaimer,
	})
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	// A failing store read marks the service degraded
	if s.store != nil {
		if bookings, err := s.store.GetBookings(); err != nil {
			slog.Warn("Health check: failed to read bookings", "error", err)
			healthData["status"] = "degraded"
			healthData["error"] = "Failed to read booking store"
		} else {
			healthData["bookings"] = len(bookings)
		}
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, healthData)
}

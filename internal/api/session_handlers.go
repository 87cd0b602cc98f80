package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vaanicare/vaanicare/internal/models"
)

// sessionHandler routes /session and /session/{id}[/transcript] requests.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("sessionHandler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/session")
	path = strings.TrimPrefix(path, "/")
	segments := strings.Split(path, "/")

	if len(segments) == 0 || segments[0] == "" {
		// /session
		switch r.Method {
		case http.MethodPost:
			s.startSessionHandler(w, r)
		default:
			w.Header().Set("Allow", http.MethodPost)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	sessionID := segments[0]

	if len(segments) == 1 {
		// /session/{id}
		switch r.Method {
		case http.MethodDelete:
			s.endSessionHandler(w, r, sessionID)
		default:
			w.Header().Set("Allow", "DELETE")
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	if len(segments) == 2 && segments[1] == "transcript" {
		// /session/{id}/transcript
		switch r.Method {
		case http.MethodPost:
			s.transcriptHandler(w, r, sessionID)
		case http.MethodGet:
			s.listTranscriptsHandler(w, r, sessionID)
		default:
			w.Header().Set("Allow", "GET, POST")
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
}

// startSessionHandler creates a voice session for a service and returns the
// first step's announcement.
func (s *Server) startSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.startSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.startSessionHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	sessionID := uuid.NewString()
	turn, err := s.sequencer.StartSession(r.Context(), sessionID, req.Service, req.Language)
	if err != nil {
		slog.Error("Server.startSessionHandler: failed to start session", "error", err, "service", req.Service)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start session"))
		return
	}

	slog.Info("Server.startSessionHandler: session started", "sessionID", sessionID, "service", req.Service, "language", req.Language)
	writeJSONResponse(w, http.StatusCreated, turn)
}

// transcriptHandler submits one transcript to the session's sequencer and
// returns the resulting turn.
func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.TranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.transcriptHandler: failed to decode JSON", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	// Final transcripts are recorded before processing; an exit decision
	// tears the session state down.
	if req.Transcript.Final {
		if state, err := s.store.GetFlowState(sessionID); err == nil && state != nil {
			record := models.TranscriptRecord{
				SessionID: sessionID,
				Text:      req.Transcript.Text,
				Language:  state.Language,
				Time:      time.Now().Unix(),
			}
			if err := s.store.AddTranscript(record); err != nil {
				slog.Warn("Server.transcriptHandler: failed to store transcript", "error", err, "sessionID", sessionID)
			}
		}
	}

	turn, err := s.sequencer.ProcessTranscript(r.Context(), sessionID, req.Transcript)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			slog.Warn("Server.transcriptHandler: session not found", "sessionID", sessionID)
			writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
			return
		}
		slog.Error("Server.transcriptHandler: failed to process transcript", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process transcript"))
		return
	}

	writeJSONResponse(w, http.StatusOK, turn)
}

// listTranscriptsHandler returns the transcripts recorded for a session.
func (s *Server) listTranscriptsHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	transcripts, err := s.store.GetTranscripts(sessionID)
	if err != nil {
		slog.Error("Server.listTranscriptsHandler: failed to read transcripts", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read transcripts"))
		return
	}
	if transcripts == nil {
		transcripts = []models.TranscriptRecord{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(transcripts))
}

// endSessionHandler tears down a session without an announcement.
func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.sequencer.EndSession(r.Context(), sessionID); err != nil {
		slog.Error("Server.endSessionHandler: failed to end session", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to end session"))
		return
	}
	slog.Info("Server.endSessionHandler: session ended", "sessionID", sessionID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session ended", nil))
}

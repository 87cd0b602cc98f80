package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vaanicare/vaanicare/internal/models"
)

func startSession(t *testing.T, handler http.Handler, service models.ServiceType) models.SessionTurn {
	t.Helper()
	rec := postJSON(t, handler, "/session", models.StartSessionRequest{Service: service, Language: models.LanguageEnglish})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 starting a session, got %d: %s", rec.Code, rec.Body.String())
	}
	var turn models.SessionTurn
	if err := json.Unmarshal(rec.Body.Bytes(), &turn); err != nil {
		t.Fatalf("failed to decode session turn: %v", err)
	}
	if turn.SessionID == "" {
		t.Fatal("expected a session ID in the first turn")
	}
	return turn
}

func sendTranscript(t *testing.T, handler http.Handler, sessionID, text string) models.SessionTurn {
	t.Helper()
	rec := postJSON(t, handler, "/session/"+sessionID+"/transcript", models.TranscriptRequest{
		Transcript: models.Transcript{Text: text, Final: true},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for transcript %q, got %d: %s", text, rec.Code, rec.Body.String())
	}
	var turn models.SessionTurn
	if err := json.Unmarshal(rec.Body.Bytes(), &turn); err != nil {
		t.Fatalf("failed to decode session turn: %v", err)
	}
	return turn
}

func TestSessionBookingLifecycle(t *testing.T) {
	ts := newTestServer(t)
	handler := ts.server.Handler()

	turn := startSession(t, handler, models.ServiceHealthcare)
	if turn.Step != models.StepSpecialty {
		t.Fatalf("expected first step %s, got %s", models.StepSpecialty, turn.Step)
	}
	if !turn.Listen {
		t.Error("expected listening to be enabled after the first announcement")
	}
	if len(turn.Candidates) != 3 {
		t.Fatalf("expected 3 specialty candidates, got %d", len(turn.Candidates))
	}

	// Positional selection: "two" picks Cardiology.
	turn = sendTranscript(t, handler, turn.SessionID, "two")
	if turn.Step != models.StepDoctors {
		t.Fatalf("expected step %s after selecting a specialty, got %s", models.StepDoctors, turn.Step)
	}

	turn = sendTranscript(t, handler, turn.SessionID, "I want to see Dr Rajesh Kumar")
	if turn.Step != models.StepTime {
		t.Fatalf("expected step %s after selecting a doctor, got %s", models.StepTime, turn.Step)
	}

	turn = sendTranscript(t, handler, turn.SessionID, "nine am")
	if turn.Step != models.StepConfirm {
		t.Fatalf("expected step %s after selecting a slot, got %s", models.StepConfirm, turn.Step)
	}
	if !strings.Contains(turn.Speak, "Rajesh Kumar") || !strings.Contains(turn.Speak, "9:00 AM") {
		t.Errorf("confirmation announcement missing selections: %q", turn.Speak)
	}

	turn = sendTranscript(t, handler, turn.SessionID, "confirm")
	if turn.Step != models.StepSuccess {
		t.Fatalf("expected step %s after confirming, got %s", models.StepSuccess, turn.Step)
	}
	if !turn.Done {
		t.Error("expected the turn to be marked done after a successful booking")
	}
	if !strings.Contains(turn.Speak, "APT-") {
		t.Errorf("expected a booking reference in the announcement, got %q", turn.Speak)
	}

	bookings, err := ts.store.GetBookings()
	if err != nil {
		t.Fatalf("failed to read bookings: %v", err)
	}
	if len(bookings) != 1 {
		t.Errorf("expected 1 stored booking, got %d", len(bookings))
	}
}

func TestSessionInterimTranscriptIgnored(t *testing.T) {
	ts := newTestServer(t)
	handler := ts.server.Handler()

	turn := startSession(t, handler, models.ServiceHealthcare)
	rec := postJSON(t, handler, "/session/"+turn.SessionID+"/transcript", models.TranscriptRequest{
		Transcript: models.Transcript{Text: "two", Final: false},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for interim transcript, got %d", rec.Code)
	}
	var interim models.SessionTurn
	if err := json.Unmarshal(rec.Body.Bytes(), &interim); err != nil {
		t.Fatalf("failed to decode session turn: %v", err)
	}
	if interim.Step != "" {
		t.Errorf("interim transcript must not advance the flow, got step %s", interim.Step)
	}
	if !interim.Listen {
		t.Error("expected listening to stay enabled for interim transcripts")
	}
}

func TestSessionHomeCommandExits(t *testing.T) {
	ts := newTestServer(t)
	handler := ts.server.Handler()

	turn := startSession(t, handler, models.ServiceLegal)
	turn = sendTranscript(t, handler, turn.SessionID, "go home")
	if !turn.Exited {
		t.Fatal("expected the session to exit on the home command")
	}
	if turn.Listen {
		t.Error("expected listening to stop after exiting the flow")
	}

	// The session is gone afterwards.
	rec := postJSON(t, handler, "/session/"+turn.SessionID+"/transcript", models.TranscriptRequest{
		Transcript: models.Transcript{Text: "one", Final: true},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after exit, got %d", rec.Code)
	}
}

func TestSessionTranscriptUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	rec := postJSON(t, ts.server.Handler(), "/session/no-such-session/transcript", models.TranscriptRequest{
		Transcript: models.Transcript{Text: "one", Final: true},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown session, got %d", rec.Code)
	}
}

func TestSessionTranscriptsRecorded(t *testing.T) {
	ts := newTestServer(t)
	handler := ts.server.Handler()

	turn := startSession(t, handler, models.ServiceHealthcare)
	sendTranscript(t, handler, turn.SessionID, "one")

	rec := httptest.NewRequest(http.MethodGet, "/session/"+turn.SessionID+"/transcript", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, rec)
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200 listing transcripts, got %d", res.Code)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("expected ok status, got %q", resp.Status)
	}
	records, ok := resp.Result.([]interface{})
	if !ok {
		t.Fatalf("expected a transcript list, got %T", resp.Result)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 recorded transcript, got %d", len(records))
	}
}

func TestSessionDelete(t *testing.T) {
	ts := newTestServer(t)
	handler := ts.server.Handler()

	turn := startSession(t, handler, models.ServiceGovernment)
	req := httptest.NewRequest(http.MethodDelete, "/session/"+turn.SessionID, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 deleting a session, got %d", rec.Code)
	}

	state, err := ts.store.GetFlowState(turn.SessionID)
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if state != nil {
		t.Error("expected session state to be removed after DELETE")
	}
}

func TestStartSessionRejectsUnknownService(t *testing.T) {
	ts := newTestServer(t)
	rec := postJSON(t, ts.server.Handler(), "/session", models.StartSessionRequest{Service: "banking"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown service, got %d", rec.Code)
	}
}

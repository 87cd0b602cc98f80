package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vaanicare/vaanicare/internal/models"
)

// memStateManager is an in-memory StateManager for tests.
type memStateManager struct {
	states map[string]*models.FlowState
}

func newMemStateManager() *memStateManager {
	return &memStateManager{states: make(map[string]*models.FlowState)}
}

func (m *memStateManager) GetState(ctx context.Context, sessionID string) (*models.FlowState, error) {
	st, ok := m.states[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *memStateManager) SaveState(ctx context.Context, state *models.FlowState) error {
	cp := *state
	m.states[state.SessionID] = &cp
	return nil
}

func (m *memStateManager) SetStateData(ctx context.Context, sessionID string, key models.DataKey, value string) error {
	st, ok := m.states[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	st.StepData[key] = value
	return nil
}

func (m *memStateManager) ResetState(ctx context.Context, sessionID string) error {
	delete(m.states, sessionID)
	return nil
}

// recordingVoice records speak and listen events in call order.
type recordingVoice struct {
	events []string
}

func (v *recordingVoice) Speak(ctx context.Context, sessionID, text string, lang models.Language) error {
	v.events = append(v.events, "speak:"+text)
	return nil
}

func (v *recordingVoice) Listen(ctx context.Context, sessionID string) error {
	v.events = append(v.events, "listen")
	return nil
}

type countingExiter struct {
	calls int
}

func (e *countingExiter) ExitFlow(ctx context.Context, sessionID string) error {
	e.calls++
	return nil
}

type stubBooker struct {
	booked []models.BookAppointmentRequest
	err    error
}

func (b *stubBooker) Book(ctx context.Context, req models.BookAppointmentRequest) (models.Booking, error) {
	if b.err != nil {
		return models.Booking{}, b.err
	}
	b.booked = append(b.booked, req)
	return models.Booking{ID: "APT-12345"}, nil
}

type stubLawyerSearcher struct {
	issue    string
	location string
	results  []models.SearchResult
}

func (s *stubLawyerSearcher) FindLawyers(ctx context.Context, issue, location string) ([]models.SearchResult, error) {
	s.issue = issue
	s.location = location
	return s.results, nil
}

type stubSchemeSearcher struct {
	profile models.SchemeProfile
	results []models.SearchResult
}

func (s *stubSchemeSearcher) FindSchemes(ctx context.Context, profile models.SchemeProfile) ([]models.SearchResult, error) {
	s.profile = profile
	return s.results, nil
}

func newTestSequencer(booker Booker) (*Sequencer, *memStateManager, *recordingVoice, *countingExiter) {
	Register(NewHealthcareFlow(booker))
	sm := newMemStateManager()
	voice := &recordingVoice{}
	exiter := &countingExiter{}
	return NewSequencer(sm, voice, exiter), sm, voice, exiter
}

func say(t *testing.T, seq *Sequencer, sessionID, text string) models.SessionTurn {
	t.Helper()
	turn, err := seq.ProcessTranscript(context.Background(), sessionID, models.Transcript{Text: text, Final: true})
	if err != nil {
		t.Fatalf("ProcessTranscript(%q) error: %v", text, err)
	}
	return turn
}

func TestSequencerHealthcareHappyPath(t *testing.T) {
	booker := &stubBooker{}
	seq, _, _, _ := newTestSequencer(booker)

	turn, err := seq.StartSession(context.Background(), "s1", models.ServiceHealthcare, models.LanguageEnglish)
	if err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	if turn.Step != models.StepSpecialty {
		t.Fatalf("expected specialty step, got %s", turn.Step)
	}
	if !turn.Listen {
		t.Fatal("expected listening after start announcement")
	}

	turn = say(t, seq, "s1", "two")
	if turn.Step != models.StepDoctors {
		t.Fatalf("expected doctors step after 'two', got %s", turn.Step)
	}
	if !strings.Contains(turn.Speak, "Cardiology") {
		t.Fatalf("expected cardiology doctor list, got %q", turn.Speak)
	}

	turn = say(t, seq, "s1", "I want to see Dr Rajesh Kumar")
	if turn.Step != models.StepTime {
		t.Fatalf("expected time step, got %s", turn.Step)
	}
	if !strings.Contains(turn.Speak, "Dr. Rajesh Kumar") {
		t.Fatalf("expected slot list for Dr. Rajesh Kumar, got %q", turn.Speak)
	}

	turn = say(t, seq, "s1", "nine am")
	if turn.Step != models.StepConfirm {
		t.Fatalf("expected confirm step, got %s", turn.Step)
	}
	if !strings.Contains(turn.Speak, "9:00 AM") {
		t.Fatalf("expected 9:00 AM in confirmation, got %q", turn.Speak)
	}

	turn = say(t, seq, "s1", "yes confirm")
	if !turn.Done {
		t.Fatal("expected Done after confirmation")
	}
	if turn.Step != models.StepSuccess {
		t.Fatalf("expected success step, got %s", turn.Step)
	}
	if !strings.Contains(turn.Speak, "APT-12345") {
		t.Fatalf("expected booking reference in announcement, got %q", turn.Speak)
	}
	if len(booker.booked) != 1 {
		t.Fatalf("expected exactly one booking, got %d", len(booker.booked))
	}
	if booker.booked[0].PreferredTime != "9:00 AM" {
		t.Fatalf("expected 9:00 AM booked, got %q", booker.booked[0].PreferredTime)
	}
}

func TestSequencerSpeakCompletesBeforeListen(t *testing.T) {
	seq, _, voice, _ := newTestSequencer(&stubBooker{})

	if _, err := seq.StartSession(context.Background(), "s2", models.ServiceHealthcare, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	say(t, seq, "s2", "one")
	say(t, seq, "s2", "gibberish nothing matches")

	if len(voice.events) == 0 {
		t.Fatal("expected voice events")
	}
	// Events must strictly alternate: every listen is preceded by a speak.
	for i, ev := range voice.events {
		wantSpeak := i%2 == 0
		if wantSpeak && !strings.HasPrefix(ev, "speak:") {
			t.Fatalf("event %d: expected speak, got %q", i, ev)
		}
		if !wantSpeak && ev != "listen" {
			t.Fatalf("event %d: expected listen, got %q", i, ev)
		}
	}
}

func TestSequencerBackOnFirstStepExitsOnce(t *testing.T) {
	seq, sm, _, exiter := newTestSequencer(&stubBooker{})

	if _, err := seq.StartSession(context.Background(), "s3", models.ServiceHealthcare, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	turn := say(t, seq, "s3", "go back")

	if !turn.Exited {
		t.Fatal("expected exit on back at first step")
	}
	if turn.Listen {
		t.Fatal("listening must not resume after exit")
	}
	if exiter.calls != 1 {
		t.Fatalf("expected exactly one exit call, got %d", exiter.calls)
	}
	if st, _ := sm.GetState(context.Background(), "s3"); st != nil {
		t.Fatal("expected state removed after exit")
	}
}

func TestSequencerBackRewindsOneStep(t *testing.T) {
	seq, _, _, exiter := newTestSequencer(&stubBooker{})

	if _, err := seq.StartSession(context.Background(), "s4", models.ServiceHealthcare, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	say(t, seq, "s4", "cardio")
	turn := say(t, seq, "s4", "go to previous")

	if turn.Exited {
		t.Fatal("back mid-flow must not exit")
	}
	if turn.Step != models.StepSpecialty {
		t.Fatalf("expected rewind to specialty, got %s", turn.Step)
	}
	if exiter.calls != 0 {
		t.Fatalf("expected no exit calls, got %d", exiter.calls)
	}
}

func TestSequencerHomeExitsFromAnyStep(t *testing.T) {
	seq, sm, _, exiter := newTestSequencer(&stubBooker{})

	if _, err := seq.StartSession(context.Background(), "s5", models.ServiceHealthcare, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	say(t, seq, "s5", "cardio")
	say(t, seq, "s5", "one")
	turn := say(t, seq, "s5", "go home")

	if !turn.Exited || exiter.calls != 1 {
		t.Fatalf("expected single exit, got exited=%v calls=%d", turn.Exited, exiter.calls)
	}
	if st, _ := sm.GetState(context.Background(), "s5"); st != nil {
		t.Fatal("expected state removed after home")
	}
}

func TestSequencerNoMatchKeepsStep(t *testing.T) {
	seq, sm, _, _ := newTestSequencer(&stubBooker{})

	if _, err := seq.StartSession(context.Background(), "s6", models.ServiceHealthcare, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	turn := say(t, seq, "s6", "complete nonsense utterance")

	if turn.Decision != models.DecisionNoMatch {
		t.Fatalf("expected no-match decision, got %s", turn.Decision)
	}
	if turn.Step != models.StepSpecialty {
		t.Fatalf("expected step unchanged, got %s", turn.Step)
	}
	if turn.Speak != RetryPhrase(models.LanguageEnglish) {
		t.Fatalf("expected retry phrase, got %q", turn.Speak)
	}
	if !turn.Listen {
		t.Fatal("expected listening to resume after retry")
	}
	st, _ := sm.GetState(context.Background(), "s6")
	if st == nil || st.CurrentStep != models.StepSpecialty {
		t.Fatal("expected persisted step unchanged")
	}
}

func TestSequencerConfirmIgnoredOutsideConfirmStep(t *testing.T) {
	booker := &stubBooker{}
	seq, _, _, _ := newTestSequencer(booker)

	if _, err := seq.StartSession(context.Background(), "s7", models.ServiceHealthcare, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	turn := say(t, seq, "s7", "confirm")

	if turn.Decision != models.DecisionNoMatch {
		t.Fatalf("expected no-match for confirm outside confirm step, got %s", turn.Decision)
	}
	if len(booker.booked) != 0 {
		t.Fatal("confirm outside confirm step must not book")
	}
}

func TestSequencerInterimTranscriptIgnored(t *testing.T) {
	seq, _, voice, _ := newTestSequencer(&stubBooker{})

	if _, err := seq.StartSession(context.Background(), "s8", models.ServiceHealthcare, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	before := len(voice.events)
	turn, err := seq.ProcessTranscript(context.Background(), "s8", models.Transcript{Text: "card", Final: false})
	if err != nil {
		t.Fatalf("ProcessTranscript error: %v", err)
	}
	if !turn.Listen {
		t.Fatal("expected to keep listening on interim transcript")
	}
	if len(voice.events) != before {
		t.Fatal("interim transcript must not speak or relisten")
	}
}

func TestSequencerUnknownSession(t *testing.T) {
	seq, _, _, _ := newTestSequencer(&stubBooker{})

	_, err := seq.ProcessTranscript(context.Background(), "missing", models.Transcript{Text: "one", Final: true})
	if !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSequencerFinalizeErrorSpeaksFallback(t *testing.T) {
	booker := &stubBooker{err: fmt.Errorf("clinic system down")}
	seq, sm, _, _ := newTestSequencer(booker)

	if _, err := seq.StartSession(context.Background(), "s9", models.ServiceHealthcare, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	say(t, seq, "s9", "cardio")
	say(t, seq, "s9", "one")
	say(t, seq, "s9", "nine am")
	turn := say(t, seq, "s9", "confirm")

	if turn.Done {
		t.Fatal("expected Done false when booking fails")
	}
	if turn.Speak != RetryPhrase(models.LanguageEnglish) {
		t.Fatalf("expected spoken fallback, got %q", turn.Speak)
	}
	if !turn.Listen {
		t.Fatal("expected listening to resume after failed finalize")
	}
	// The session must stay on the confirm step, not advance to success.
	if turn.Step != models.StepConfirm {
		t.Fatalf("expected confirm step after failed booking, got %s", turn.Step)
	}
	st, _ := sm.GetState(context.Background(), "s9")
	if st == nil || st.CurrentStep != models.StepConfirm {
		t.Fatal("expected persisted step to remain confirm after failed booking")
	}

	// Once the booking system recovers, repeating confirm books.
	booker.err = nil
	turn = say(t, seq, "s9", "confirm")
	if !turn.Done {
		t.Fatal("expected Done after retried confirmation")
	}
	if turn.Step != models.StepSuccess {
		t.Fatalf("expected success step after retry, got %s", turn.Step)
	}
	if len(booker.booked) != 1 {
		t.Fatalf("expected exactly one booking after retry, got %d", len(booker.booked))
	}
}

func TestSequencerGovernmentProfileInterview(t *testing.T) {
	searcher := &stubSchemeSearcher{results: []models.SearchResult{
		{Title: "PM Kisan Samman Nidhi"},
		{Title: "Karshaka Pension Scheme"},
	}}
	Register(NewGovernmentFlow(searcher))
	sm := newMemStateManager()
	seq := NewSequencer(sm, &recordingVoice{}, &countingExiter{})

	if _, err := seq.StartSession(context.Background(), "g1", models.ServiceGovernment, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}

	turn := say(t, seq, "g1", "65")
	if turn.Step != models.StepSchemeGender {
		t.Fatalf("expected gender step after age, got %s", turn.Step)
	}
	turn = say(t, seq, "g1", "two")
	if turn.Step != models.StepSchemeState {
		t.Fatalf("expected state step after gender, got %s", turn.Step)
	}
	turn = say(t, seq, "g1", "Kerala")
	if turn.Step != models.StepSchemeIncome {
		t.Fatalf("expected income step after state, got %s", turn.Step)
	}
	turn = say(t, seq, "g1", "middle income")
	if turn.Step != models.StepSchemeOccupation {
		t.Fatalf("expected occupation step after income, got %s", turn.Step)
	}
	turn = say(t, seq, "g1", "farmer")
	if turn.Step != models.StepSchemeCategory {
		t.Fatalf("expected category step after occupation, got %s", turn.Step)
	}
	turn = say(t, seq, "g1", "obc")

	if !turn.Done {
		t.Fatal("expected Done after results")
	}
	if turn.Step != models.StepSchemeResults {
		t.Fatalf("expected results step, got %s", turn.Step)
	}
	want := models.SchemeProfile{
		Age:           "65",
		Gender:        "Female",
		State:         "Kerala",
		IncomeBracket: "1 to 5 lakh",
		Occupation:    "farmer",
		Category:      "OBC",
	}
	if searcher.profile != want {
		t.Fatalf("unexpected search profile: %+v", searcher.profile)
	}
	if !strings.Contains(turn.Speak, "PM Kisan Samman Nidhi") {
		t.Fatalf("expected scheme titles in announcement, got %q", turn.Speak)
	}
	if !strings.Contains(turn.Speak, "verify eligibility") {
		t.Fatalf("expected eligibility reminder in announcement, got %q", turn.Speak)
	}
}

func TestSequencerLegalFreeTextLocation(t *testing.T) {
	searcher := &stubLawyerSearcher{results: []models.SearchResult{
		{Title: "District Legal Services Authority Ernakulam"},
		{Title: "Kerala State Legal Services Authority"},
	}}
	Register(NewLegalFlow(searcher))
	sm := newMemStateManager()
	seq := NewSequencer(sm, &recordingVoice{}, &countingExiter{})

	if _, err := seq.StartSession(context.Background(), "L1", models.ServiceLegal, models.LanguageEnglish); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	turn := say(t, seq, "L1", "one")
	if turn.Step != models.StepLegalLocation {
		t.Fatalf("expected location step, got %s", turn.Step)
	}

	turn = say(t, seq, "L1", "Ernakulam")
	if !turn.Done {
		t.Fatal("expected Done after results")
	}
	if searcher.issue != "Property dispute" || searcher.location != "Ernakulam" {
		t.Fatalf("unexpected search arguments: issue=%q location=%q", searcher.issue, searcher.location)
	}
	if !strings.Contains(turn.Speak, "District Legal Services Authority Ernakulam") {
		t.Fatalf("expected result titles in announcement, got %q", turn.Speak)
	}
}

func TestSequencerMalayalamCommands(t *testing.T) {
	seq, _, _, exiter := newTestSequencer(&stubBooker{})

	if _, err := seq.StartSession(context.Background(), "ml1", models.ServiceHealthcare, models.LanguageMalayalam); err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	say(t, seq, "ml1", "cardio")
	turn := say(t, seq, "ml1", "thirike")
	if turn.Step != models.StepSpecialty {
		t.Fatalf("expected Malayalam back to rewind, got %s", turn.Step)
	}

	turn = say(t, seq, "ml1", "ഹോം")
	if !turn.Exited || exiter.calls != 1 {
		t.Fatalf("expected Malayalam home to exit once, got exited=%v calls=%d", turn.Exited, exiter.calls)
	}
}

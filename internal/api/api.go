// Package api provides HTTP handlers and the main API server logic for VaaniCare.
//
// It exposes RESTful endpoints for speech transcription, appointment
// extraction and booking, legal aid and government scheme lookups, and
// server-driven voice sessions. The API integrates with the stt, genai,
// search, flow, notify, and store modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/vaanicare/vaanicare/internal/flow"
	"github.com/vaanicare/vaanicare/internal/genai"
	"github.com/vaanicare/vaanicare/internal/models"
	"github.com/vaanicare/vaanicare/internal/notify"
	"github.com/vaanicare/vaanicare/internal/scheduler"
	"github.com/vaanicare/vaanicare/internal/search"
	"github.com/vaanicare/vaanicare/internal/store"
	"github.com/vaanicare/vaanicare/internal/stt"
	"github.com/vaanicare/vaanicare/internal/util"
)

// DefaultAddr is the default API server listen address.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Searcher covers the web lookups the legal and government endpoints need.
// *search.Client satisfies it.
type Searcher interface {
	flow.LawyerSearcher
	flow.SchemeSearcher
}

// Server holds the API server dependencies and routes requests to handlers.
type Server struct {
	addr        string
	store       store.Store
	genAI       genai.ClientInterface
	searcher    Searcher
	transcriber stt.Transcriber
	notifier    notify.Sender
	sequencer   *flow.Sequencer
}

// NewServer creates an API server, wires the conversational flows into the
// flow registry, and builds the session sequencer. The transcriber and
// notifier may be nil; their endpoints and side effects are then disabled.
func NewServer(st store.Store, ai genai.ClientInterface, searcher Searcher, transcriber stt.Transcriber, notifier notify.Sender, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		addr:        cfg.Addr,
		store:       st,
		genAI:       ai,
		searcher:    searcher,
		transcriber: transcriber,
		notifier:    notifier,
	}

	// The server itself performs bookings, so the healthcare flow books
	// through the same path as POST /api/book-appointment.
	flow.Register(flow.NewHealthcareFlow(s))
	flow.Register(flow.NewLegalFlow(searcher))
	flow.Register(flow.NewGovernmentFlow(searcher))

	stateManager := flow.NewStoreBasedStateManager(st)
	s.sequencer = flow.NewSequencer(stateManager, clientVoice{}, clientExiter{})

	slog.Debug("Server created", "addr", cfg.Addr, "transcriber_set", transcriber != nil, "notifier_set", notifier != nil)
	return s
}

// Handler returns the server's routing handler with CORS applied. The web
// client is served from a different origin, so all origins are allowed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", s.transcribeHandler)
	mux.HandleFunc("/api/extract-speech", s.extractSpeechHandler)
	mux.HandleFunc("/api/book-appointment", s.bookAppointmentHandler)
	mux.HandleFunc("/find-lawyers", s.findLawyersHandler)
	mux.HandleFunc("/legal-advice", s.legalAdviceHandler)
	mux.HandleFunc("/find-schemes", s.findSchemesHandler)
	mux.HandleFunc("/session", s.sessionHandler)
	mux.HandleFunc("/session/", s.sessionHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return corsMiddleware(mux)
}

// corsMiddleware allows cross-origin requests from any origin and answers
// preflight requests directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run builds all modules from their options and serves the API until the
// listener fails. The store backend is chosen from the configured DSN;
// transcription and SMS notification are enabled only when their
// credentials are available.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, notifyOpts []notify.Option, apiOpts []Option) error {
	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("api.Run: failed to close store", "error", closeErr)
		}
	}()

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.ScheduleSessionSweep(st); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	ai, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	var notifier notify.Sender
	if sender, err := notify.NewClient(notifyOpts...); err != nil {
		slog.Info("api.Run: SMS notification disabled", "reason", err)
	} else {
		notifier = sender
	}

	var transcriber stt.Transcriber
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		sttClient, err := stt.New(context.Background())
		if err != nil {
			slog.Warn("api.Run: speech-to-text disabled", "error", err)
		} else {
			transcriber = sttClient
			defer func() {
				if closeErr := sttClient.Close(); closeErr != nil {
					slog.Error("api.Run: failed to close STT client", "error", closeErr)
				}
			}()
		}
	} else {
		slog.Info("api.Run: GOOGLE_APPLICATION_CREDENTIALS not set, speech-to-text disabled")
	}

	server := NewServer(st, ai, search.NewClient(), transcriber, notifier, apiOpts...)

	slog.Info("VaaniCare API running", "addr", server.addr)
	return http.ListenAndServe(server.addr, server.Handler())
}

// buildStore selects the store backend from the configured options.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	switch {
	case cfg.RedisAddr != "":
		slog.Debug("api.buildStore: using Redis store", "addr", cfg.RedisAddr)
		return store.NewRedisStore(storeOpts...)
	case store.DetectDSNType(cfg.DSN) == "postgres":
		slog.Debug("api.buildStore: using PostgreSQL store")
		return store.NewPostgresStore(storeOpts...)
	case cfg.DSN != "":
		slog.Debug("api.buildStore: using SQLite store", "db_path", cfg.DSN)
		return store.NewSQLiteStore(storeOpts...)
	default:
		slog.Debug("api.buildStore: no DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
}

// Book creates and stores a booking, asks the LLM for a friendly
// confirmation message, and sends the confirmation SMS when a patient phone
// number is present. It backs both POST /api/book-appointment and the
// healthcare voice flow's final step.
func (s *Server) Book(ctx context.Context, req models.BookAppointmentRequest) (models.Booking, error) {
	booking := models.Booking{
		ID:              util.GenerateBookingRef(),
		DoctorSpecialty: req.DoctorSpecialty,
		PreferredDate:   req.PreferredDate,
		PreferredTime:   req.PreferredTime,
		PatientName:     req.PatientName,
		PatientPhone:    req.PatientPhone,
		CreatedAt:       time.Now().UTC(),
	}

	summary := fmt.Sprintf("%s appointment on %s at %s", req.DoctorSpecialty, req.PreferredDate, req.PreferredTime)
	if req.PatientName != "" {
		summary = fmt.Sprintf("%s for %s", summary, req.PatientName)
	}
	confirmation, err := s.genAI.BookingConfirmation(ctx, summary, booking.ID)
	if err != nil {
		// The booking stands even when the confirmation text cannot be
		// generated; a plain summary is used instead.
		slog.Warn("Server.Book: failed to generate confirmation message", "error", err, "booking_id", booking.ID)
		confirmation = fmt.Sprintf("Your %s is confirmed. Reference %s.", summary, booking.ID)
	}
	booking.Confirmation = confirmation

	if err := s.store.AddBooking(booking); err != nil {
		slog.Error("Server.Book: failed to save booking", "error", err, "booking_id", booking.ID)
		return models.Booking{}, fmt.Errorf("failed to save booking: %w", err)
	}

	if s.notifier != nil && req.PatientPhone != "" {
		if err := s.notifier.SendSMS(ctx, req.PatientPhone, confirmation); err != nil {
			slog.Warn("Server.Book: failed to send confirmation SMS", "error", err, "booking_id", booking.ID)
		} else {
			slog.Debug("Server.Book: confirmation SMS sent", "booking_id", booking.ID)
		}
	}

	slog.Info("Server.Book: booking created", "booking_id", booking.ID, "specialty", req.DoctorSpecialty)
	return booking, nil
}


// clientVoice satisfies flow.Voice for HTTP sessions. Speech synthesis and
// microphone control happen on the client from the returned turn, so the
// server side only records the ordering.
type clientVoice struct{}

func (clientVoice) Speak(ctx context.Context, sessionID, text string, lang models.Language) error {
	slog.Debug("api voice speak", "sessionID", sessionID, "language", lang, "chars", len(text))
	return nil
}

func (clientVoice) Listen(ctx context.Context, sessionID string) error {
	slog.Debug("api voice listen", "sessionID", sessionID)
	return nil
}

// clientExiter satisfies flow.Exiter; the client navigates home when the
// returned turn carries the exited flag.
type clientExiter struct{}

func (clientExiter) ExitFlow(ctx context.Context, sessionID string) error {
	slog.Debug("api voice exit flow", "sessionID", sessionID)
	return nil
}

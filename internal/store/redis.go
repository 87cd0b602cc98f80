// Package store provides storage backends for VaaniCare.
//
// This file implements a Redis-backed store. Session state is held under a
// TTL since voice sessions are ephemeral; bookings and transcripts live in
// lists.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vaanicare/vaanicare/internal/models"
)

// SessionTTL bounds how long an abandoned voice session survives.
const SessionTTL = 30 * time.Minute

const (
	sessionKeyPrefix    = "vaanicare:session:"
	bookingsKey         = "vaanicare:bookings"
	transcriptKeyPrefix = "vaanicare:transcripts:"
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis store from the configured address.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewRedisStore invoked", "addr_set", cfg.RedisAddr != "")

	if cfg.RedisAddr == "" {
		slog.Error("RedisStore address not set")
		return nil, fmt.Errorf("redis address not set")
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err, "addr", cfg.RedisAddr)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	slog.Debug("Redis connection established", "addr", cfg.RedisAddr)
	return &RedisStore{client: client}, nil
}

// SaveFlowState stores flow state under the session TTL.
func (s *RedisStore) SaveFlowState(state models.FlowState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		slog.Error("RedisStore SaveFlowState marshal failed", "error", err, "sessionID", state.SessionID)
		return err
	}
	if err := s.client.Set(context.Background(), sessionKeyPrefix+state.SessionID, payload, SessionTTL).Err(); err != nil {
		slog.Error("RedisStore SaveFlowState failed", "error", err, "sessionID", state.SessionID)
		return err
	}
	slog.Debug("RedisStore SaveFlowState succeeded", "sessionID", state.SessionID, "step", state.CurrentStep)
	return nil
}

// GetFlowState retrieves flow state for a session.
func (s *RedisStore) GetFlowState(sessionID string) (*models.FlowState, error) {
	payload, err := s.client.Get(context.Background(), sessionKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		slog.Debug("RedisStore GetFlowState not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore GetFlowState failed", "error", err, "sessionID", sessionID)
		return nil, err
	}

	var state models.FlowState
	if err := json.Unmarshal(payload, &state); err != nil {
		slog.Error("RedisStore GetFlowState unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	if state.StepData == nil {
		state.StepData = make(map[models.DataKey]string)
	}
	return &state, nil
}

// DeleteFlowState removes flow state for a session.
func (s *RedisStore) DeleteFlowState(sessionID string) error {
	if err := s.client.Del(context.Background(), sessionKeyPrefix+sessionID).Err(); err != nil {
		slog.Error("RedisStore DeleteFlowState failed", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Debug("RedisStore DeleteFlowState succeeded", "sessionID", sessionID)
	return nil
}

// DeleteStaleFlowStates is a no-op; session keys expire under SessionTTL.
func (s *RedisStore) DeleteStaleFlowStates(cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisStore) AddBooking(b models.Booking) error {
	payload, err := json.Marshal(b)
	if err != nil {
		slog.Error("RedisStore AddBooking marshal failed", "error", err, "bookingID", b.ID)
		return err
	}
	if err := s.client.RPush(context.Background(), bookingsKey, payload).Err(); err != nil {
		slog.Error("RedisStore AddBooking failed", "error", err, "bookingID", b.ID)
		return err
	}
	slog.Debug("RedisStore AddBooking succeeded", "bookingID", b.ID)
	return nil
}

func (s *RedisStore) GetBookings() ([]models.Booking, error) {
	entries, err := s.client.LRange(context.Background(), bookingsKey, 0, -1).Result()
	if err != nil {
		slog.Error("RedisStore GetBookings failed", "error", err)
		return nil, err
	}

	var bookings []models.Booking
	for _, entry := range entries {
		var b models.Booking
		if err := json.Unmarshal([]byte(entry), &b); err != nil {
			slog.Error("RedisStore GetBookings unmarshal failed", "error", err)
			return nil, err
		}
		bookings = append(bookings, b)
	}
	slog.Debug("RedisStore GetBookings succeeded", "count", len(bookings))
	return bookings, nil
}

// AddTranscript appends a transcript to its session's list and refreshes
// the list TTL to match the session.
func (s *RedisStore) AddTranscript(t models.TranscriptRecord) error {
	payload, err := json.Marshal(t)
	if err != nil {
		slog.Error("RedisStore AddTranscript marshal failed", "error", err, "sessionID", t.SessionID)
		return err
	}
	ctx := context.Background()
	key := transcriptKeyPrefix + t.SessionID
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		slog.Error("RedisStore AddTranscript failed", "error", err, "sessionID", t.SessionID)
		return err
	}
	if err := s.client.Expire(ctx, key, SessionTTL).Err(); err != nil {
		slog.Error("RedisStore AddTranscript expire failed", "error", err, "sessionID", t.SessionID)
		return err
	}
	slog.Debug("RedisStore AddTranscript succeeded", "sessionID", t.SessionID)
	return nil
}

func (s *RedisStore) GetTranscripts(sessionID string) ([]models.TranscriptRecord, error) {
	entries, err := s.client.LRange(context.Background(), transcriptKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		slog.Error("RedisStore GetTranscripts failed", "error", err, "sessionID", sessionID)
		return nil, err
	}

	var records []models.TranscriptRecord
	for _, entry := range entries {
		var t models.TranscriptRecord
		if err := json.Unmarshal([]byte(entry), &t); err != nil {
			slog.Error("RedisStore GetTranscripts unmarshal failed", "error", err, "sessionID", sessionID)
			return nil, err
		}
		records = append(records, t)
	}
	slog.Debug("RedisStore GetTranscripts succeeded", "sessionID", sessionID, "count", len(records))
	return records, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	slog.Debug("Closing Redis connection")
	return s.client.Close()
}

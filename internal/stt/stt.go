// Package stt transcribes uploaded audio with Google Cloud Speech.
package stt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/vaanicare/vaanicare/internal/models"
)

// Transcriber converts an audio blob into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, lang models.Language) (string, error)
	Close() error
}

// languageCodes maps session languages to BCP-47 recognition codes.
var languageCodes = map[models.Language]string{
	models.LanguageEnglish:   "en-IN",
	models.LanguageMalayalam: "ml-IN",
}

// GoogleSTT is a Transcriber backed by Google Cloud Speech. Authentication
// uses Application Default Credentials.
type GoogleSTT struct {
	client *speech.Client
}

// New creates a Google Cloud Speech transcriber.
func New(ctx context.Context) (*GoogleSTT, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleSTT{client: client}, nil
}

// Transcribe runs a batch recognition over the whole uploaded blob and
// joins the result segments.
func (s *GoogleSTT) Transcribe(ctx context.Context, audio []byte, lang models.Language) (string, error) {
	code, ok := languageCodes[lang]
	if !ok {
		code = languageCodes[models.LanguageEnglish]
	}

	resp, err := s.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			// Encoding is left unspecified so the service reads it from the
			// container header; uploads come from browser recorders in
			// several formats.
			LanguageCode:               code,
			AlternativeLanguageCodes:   []string{"en-IN", "ml-IN"},
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		slog.Error("STT recognition failed", "error", err, "language", code, "audioBytes", len(audio))
		return "", fmt.Errorf("recognize: %w", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, " "))
	slog.Debug("STT recognition completed", "language", code, "transcriptLength", len(text))
	return text, nil
}

// Close releases the underlying gRPC connection.
func (s *GoogleSTT) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Package genai provides LLM-backed operations (appointment extraction,
// legal advice) through an OpenAI-compatible chat completion API. The
// default endpoint is Groq.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vaanicare/vaanicare/internal/models"
)

// DefaultBaseURL is the Groq OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "llama-3.3-70b-versatile"

// ClientInterface defines the LLM operations used by the API layer.
type ClientInterface interface {
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	ExtractAppointment(ctx context.Context, speechText string) (models.ExtractedAppointment, error)
	ClarificationQuestions(ctx context.Context, missingFields []string) (string, error)
	LegalAdvice(ctx context.Context, issue string, lang models.Language) (string, error)
	BookingConfirmation(ctx context.Context, summary, bookingID string) (string, error)
}

// completionService is the minimal chat completion surface, satisfied by
// openai.Client.Chat.Completions.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configurable client options.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Option configures the genai client.
type Option func(*Opts)

// WithAPIKey sets the API key, overriding the GROQ_API_KEY environment
// variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL sets the completion endpoint base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps an OpenAI-compatible chat completion service.
type Client struct {
	completions completionService
	model       string
}

// NewClient initializes a genai client. The API key comes from options or
// the GROQ_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		APIKey:  os.Getenv("GROQ_API_KEY"),
		BaseURL: DefaultBaseURL,
		Model:   DefaultModel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY not set")
	}

	cli := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	slog.Debug("GenAI client created", "baseURL", cfg.BaseURL, "model", cfg.Model)
	return &Client{completions: &cli.Chat.Completions, model: cfg.Model}, nil
}

// GenerateWithMessages sends a full message list and returns the first
// choice's content.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(0.5),
		MaxTokens:   openai.Int(1024),
	})
	if err != nil {
		slog.Error("GenAI completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	slog.Debug("GenAI completion succeeded", "model", c.model, "responseLength", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}

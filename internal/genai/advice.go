package genai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/vaanicare/vaanicare/internal/models"
)

const legalAdviceSystemPrompt = "You are a helpful legal assistant for VaaniCare, an app for elderly and rural users in India. " +
	"Provide simple, clear legal advice or guidance based on the user's issue. " +
	"If the language is 'ml', respond in Malayalam. Otherwise, respond in English. " +
	"Keep the advice practical and easy to understand. " +
	"Disclaimer: This is for informational purposes only, not a substitute for professional legal advice."

// LegalAdvice generates plain-language legal guidance for an issue in the
// requested language.
func (c *Client) LegalAdvice(ctx context.Context, issue string, lang models.Language) (string, error) {
	prompt := fmt.Sprintf("User Issue: %s\nPlease provide legal guidance in %s language.", issue, lang)
	return c.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(legalAdviceSystemPrompt),
		openai.UserMessage(prompt),
	})
}

// BookingConfirmation writes a short confirmation message for a booked
// appointment around its reference number.
func (c *Client) BookingConfirmation(ctx context.Context, summary, bookingID string) (string, error) {
	prompt := fmt.Sprintf(`Create a confirmation message for this appointment booking:
%s

The confirmation number is %s.
Include the confirmation number, appointment details, and next steps.
Keep it professional and brief.`, summary, bookingID)

	return c.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	})
}

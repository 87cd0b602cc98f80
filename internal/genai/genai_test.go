package genai

import (
	"context"
	"fmt"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaanicare/vaanicare/internal/models"
)

// stubCompletions returns canned responses and records the last request.
type stubCompletions struct {
	response string
	err      error
	last     openai.ChatCompletionNewParams
}

func (s *stubCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.last = params
	if s.err != nil {
		return nil, s.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.response}},
		},
	}, nil
}

func newStubClient(response string) (*Client, *stubCompletions) {
	stub := &stubCompletions{response: response}
	return &Client{completions: stub, model: DefaultModel}, stub
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	_, err := NewClient()
	require.Error(t, err)

	c, err := NewClient(WithAPIKey("test-key"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.model)
}

func TestExtractAppointment(t *testing.T) {
	client, stub := newStubClient(`{
		"doctor_specialty": "cardiologist",
		"preferred_date": "2026-09-01",
		"preferred_time": "10:00 AM",
		"patient_name": "Ravi",
		"patient_age": 68,
		"patient_phone": null,
		"reason": null,
		"symptoms": ["chest pain", "fatigue"]
	}`)

	extracted, err := client.ExtractAppointment(context.Background(), "I need a heart doctor tomorrow at ten for my chest pain")
	require.NoError(t, err)

	assert.Equal(t, "cardiologist", extracted.DoctorSpecialty)
	assert.Equal(t, "68", extracted.PatientAge)
	assert.Empty(t, extracted.PatientPhone)
	assert.Equal(t, "chest pain, fatigue", extracted.Symptoms)
	// Symptoms fill in for a missing reason.
	assert.Equal(t, "chest pain, fatigue", extracted.Reason)

	assert.Len(t, stub.last.Messages, 1)
}

func TestExtractAppointmentStripsCodeFences(t *testing.T) {
	client, _ := newStubClient("```json\n{\"doctor_specialty\": \"dermatologist\"}\n```")

	extracted, err := client.ExtractAppointment(context.Background(), "skin doctor please")
	require.NoError(t, err)
	assert.Equal(t, "dermatologist", extracted.DoctorSpecialty)
}

func TestExtractAppointmentInvalidJSON(t *testing.T) {
	client, _ := newStubClient("Sorry, I could not help with that.")

	_, err := client.ExtractAppointment(context.Background(), "anything")
	require.Error(t, err)
}

func TestMissingFields(t *testing.T) {
	missing := MissingFields(models.ExtractedAppointment{
		DoctorSpecialty: "cardiologist",
		PatientName:     "Ravi",
	})
	assert.Equal(t, []string{"preferred_date", "preferred_time", "reason"}, missing)

	complete := models.ExtractedAppointment{
		DoctorSpecialty: "cardiologist",
		PreferredDate:   "2026-09-01",
		PreferredTime:   "10:00 AM",
		PatientName:     "Ravi",
		Reason:          "chest pain",
	}
	assert.Empty(t, MissingFields(complete))
}

func TestClarificationQuestionsEmpty(t *testing.T) {
	client, stub := newStubClient("What date works for you?")

	msg, err := client.ClarificationQuestions(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "All information collected!", msg)
	assert.Empty(t, stub.last.Messages, "no model call for an empty field list")
}

func TestClarificationQuestions(t *testing.T) {
	client, _ := newStubClient("Which day would you like to come in, and what is the visit for?")

	msg, err := client.ClarificationQuestions(context.Background(), []string{"preferred_date", "reason"})
	require.NoError(t, err)
	assert.Contains(t, msg, "Which day")
}

func TestLegalAdvice(t *testing.T) {
	client, stub := newStubClient("You can approach the District Legal Services Authority for free legal aid.")

	advice, err := client.LegalAdvice(context.Background(), "my landlord will not return my deposit", models.LanguageEnglish)
	require.NoError(t, err)
	assert.Contains(t, advice, "Legal Services Authority")
	assert.Len(t, stub.last.Messages, 2, "system prompt plus user prompt")
}

func TestBookingConfirmation(t *testing.T) {
	client, _ := newStubClient("Your appointment is confirmed. Confirmation number: APT-48213.")

	msg, err := client.BookingConfirmation(context.Background(), "Cardiology, Dr. Rajesh Kumar, 9:00 AM", "APT-48213")
	require.NoError(t, err)
	assert.Contains(t, msg, "APT-48213")
}

func TestGenerateWithMessagesError(t *testing.T) {
	stub := &stubCompletions{err: fmt.Errorf("rate limited")}
	client := &Client{completions: stub, model: DefaultModel}

	_, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hello"),
	})
	require.Error(t, err)
}

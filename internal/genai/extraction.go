package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/vaanicare/vaanicare/internal/models"
)

// requiredBookingFields must all be present before an appointment can be
// booked. Symptoms and age are optional extras.
var requiredBookingFields = []string{
	"doctor_specialty",
	"preferred_date",
	"preferred_time",
	"patient_name",
	"reason",
}

const extractionPromptFormat = `Extract appointment booking information from this user message. Return ONLY valid JSON.

Instructions:
- Extract values that are explicitly mentioned
- Return null for fields not mentioned
- For dates: parse "tomorrow", "next Monday" etc to actual dates (today is %s)
- For doctor specialty: accept common terms like "pediatrician", "paediatric", "paediatrician", "cardiologist", etc.
- For time: parse "noon" as "12:00 PM", "morning" as a range, etc.
- Only extract information actually stated by the user

Fields to extract (all should be present, use null if not mentioned):
- doctor_specialty
- preferred_date
- preferred_time
- patient_name
- patient_age
- patient_phone
- reason
- symptoms

User message: "%s"

Return ONLY valid JSON, no explanation.`

// ExtractAppointment pulls structured appointment fields out of a free-form
// transcript. Fields the user did not mention come back empty.
func (c *Client) ExtractAppointment(ctx context.Context, speechText string) (models.ExtractedAppointment, error) {
	prompt := fmt.Sprintf(extractionPromptFormat, time.Now().Format("2006-01-02"), speechText)
	response, err := c.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	})
	if err != nil {
		return models.ExtractedAppointment{}, err
	}

	raw := make(map[string]any)
	cleaned := stripCodeFences(response)
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		slog.Error("GenAI extraction returned invalid JSON", "error", err, "responseLength", len(response))
		return models.ExtractedAppointment{}, fmt.Errorf("parse extraction response: %w", err)
	}

	extracted := models.ExtractedAppointment{
		DoctorSpecialty: fieldString(raw, "doctor_specialty"),
		PreferredDate:   fieldString(raw, "preferred_date"),
		PreferredTime:   fieldString(raw, "preferred_time"),
		PatientName:     fieldString(raw, "patient_name"),
		PatientAge:      fieldString(raw, "patient_age"),
		PatientPhone:    fieldString(raw, "patient_phone"),
		Reason:          fieldString(raw, "reason"),
		Symptoms:        fieldString(raw, "symptoms"),
	}
	// Symptoms stand in for the visit reason when no reason was stated.
	if extracted.Reason == "" && extracted.Symptoms != "" {
		extracted.Reason = extracted.Symptoms
	}
	slog.Debug("GenAI extraction parsed", "missingFields", len(MissingFields(extracted)))
	return extracted, nil
}

// MissingFields lists the required booking fields an extraction left empty.
func MissingFields(extracted models.ExtractedAppointment) []string {
	present := map[string]string{
		"doctor_specialty": extracted.DoctorSpecialty,
		"preferred_date":   extracted.PreferredDate,
		"preferred_time":   extracted.PreferredTime,
		"patient_name":     extracted.PatientName,
		"reason":           extracted.Reason,
	}
	var missing []string
	for _, field := range requiredBookingFields {
		if present[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// ClarificationQuestions asks the model for natural follow-up questions
// covering the missing fields.
func (c *Client) ClarificationQuestions(ctx context.Context, missingFields []string) (string, error) {
	if len(missingFields) == 0 {
		return "All information collected!", nil
	}
	readable := make([]string, len(missingFields))
	for i, f := range missingFields {
		readable[i] = strings.ReplaceAll(f, "_", " ")
	}
	prompt := fmt.Sprintf(`Generate 1-2 brief, natural follow-up questions to ask the user to get this missing information:
%s

Be conversational and helpful. Ask for all the missing information together if possible.
Keep questions short and natural, as if talking to someone in person.
Do not number the questions. Just ask naturally.`, strings.Join(readable, ", "))

	return c.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	})
}

// stripCodeFences removes a surrounding markdown code block, which models
// add despite instructions not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// fieldString reads a JSON field as a string. Numbers are formatted, lists
// are joined, null and absent become empty.
func fieldString(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		if strings.EqualFold(t, "null") {
			return ""
		}
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/vaanicare/vaanicare/internal/models"
)

// Booker performs the actual appointment booking when the confirmation step
// is confirmed.
type Booker interface {
	Book(ctx context.Context, req models.BookAppointmentRequest) (models.Booking, error)
}

// Doctors is the static reference list for the healthcare flow. Read-only;
// a doctor is only selectable after its specialty has been chosen, so a
// selected doctor always belongs to the filtered list by construction.
var Doctors = []models.Doctor{
	{ID: "doc-1", Name: "Dr. Anita Menon", Specialty: "General", Experience: 10, Rating: 4.5, Fee: 300, Slots: []string{"9:00 AM", "11:00 AM", "4:00 PM"}},
	{ID: "doc-2", Name: "Dr. Suresh Pillai", Specialty: "General", Experience: 8, Rating: 4.2, Fee: 250, Slots: []string{"10:00 AM", "2:00 PM"}},
	{ID: "doc-3", Name: "Dr. Rajesh Kumar", Specialty: "Cardiology", Experience: 15, Rating: 4.8, Fee: 600, Slots: []string{"9:00 AM", "12:00 PM", "4:00 PM"}},
	{ID: "doc-4", Name: "Dr. Priya Nair", Specialty: "Cardiology", Experience: 12, Rating: 4.6, Fee: 550, Slots: []string{"10:00 AM", "3:00 PM"}},
	{ID: "doc-5", Name: "Dr. Thomas George", Specialty: "Dermatology", Experience: 9, Rating: 4.4, Fee: 400, Slots: []string{"11:00 AM", "5:00 PM"}},
	{ID: "doc-6", Name: "Dr. Lakshmi Warrier", Specialty: "Dermatology", Experience: 7, Rating: 4.3, Fee: 350, Slots: []string{"9:00 AM", "2:00 PM"}},
}

var specialtyCandidates = []models.Candidate{
	{Label: "General", Keywords: []string{"general", "physician", "ജനറൽ"}},
	{Label: "Cardiology", Keywords: []string{"cardio", "heart", "ഹൃദയം", "hridayam"}},
	{Label: "Dermatology", Keywords: []string{"derma", "skin", "ചർമ്മം", "charmam"}},
}

// HealthcareFlow is the doctor appointment booking flow:
// specialty → doctors → time → confirm → success.
type HealthcareFlow struct {
	booker Booker
}

// NewHealthcareFlow creates the healthcare flow with its booking collaborator.
func NewHealthcareFlow(booker Booker) *HealthcareFlow {
	return &HealthcareFlow{booker: booker}
}

func (f *HealthcareFlow) Service() models.ServiceType { return models.ServiceHealthcare }

func (f *HealthcareFlow) Steps() []Step {
	return []Step{
		{ID: models.StepSpecialty},
		{ID: models.StepDoctors},
		{ID: models.StepTime, TimeSlots: true},
		{ID: models.StepConfirm, Confirm: true},
		{ID: models.StepSuccess, Terminal: true},
	}
}

func (f *HealthcareFlow) Candidates(state *models.FlowState, step Step) []models.Candidate {
	switch step.ID {
	case models.StepSpecialty:
		return specialtyCandidates
	case models.StepDoctors:
		var out []models.Candidate
		for _, d := range f.filteredDoctors(state) {
			out = append(out, models.Candidate{Label: d.Name})
		}
		return out
	case models.StepTime:
		if d, ok := f.selectedDoctor(state); ok {
			out := make([]models.Candidate, 0, len(d.Slots))
			for _, s := range d.Slots {
				out = append(out, models.Candidate{Label: s})
			}
			return out
		}
	}
	return nil
}

func (f *HealthcareFlow) Announce(state *models.FlowState, step Step) string {
	ml := state.Language == models.LanguageMalayalam
	switch step.ID {
	case models.StepSpecialty:
		body := "Which department do you need? Say the number or the name."
		if ml {
			body = "ഏത് വിഭാഗമാണ് വേണ്ടത്? നമ്പറോ പേരോ പറയൂ."
		}
		return formatOptions(body, specialtyCandidates)
	case models.StepDoctors:
		body := fmt.Sprintf("Here are our %s doctors. Say the number or the doctor's name.", state.StepData[models.DataKeySpecialty])
		if ml {
			body = fmt.Sprintf("%s ഡോക്ടർമാർ ഇതാ. നമ്പറോ ഡോക്ടറുടെ പേരോ പറയൂ.", state.StepData[models.DataKeySpecialty])
		}
		return formatOptions(body, f.Candidates(state, step))
	case models.StepTime:
		doctor, _ := f.selectedDoctor(state)
		body := fmt.Sprintf("Available times for %s. Say the slot number or the time.", doctor.Name)
		if ml {
			body = fmt.Sprintf("%s-ന് ലഭ്യമായ സമയങ്ങൾ. സ്ലോട്ട് നമ്പറോ സമയമോ പറയൂ.", doctor.Name)
		}
		return formatOptions(body, f.Candidates(state, step))
	case models.StepConfirm:
		doctor, _ := f.selectedDoctor(state)
		if ml {
			return fmt.Sprintf("%s, %s, %s. ബുക്ക് ചെയ്യാൻ ശരി എന്ന് പറയൂ, മാറ്റാൻ തിരികെ എന്ന് പറയൂ.",
				state.StepData[models.DataKeySpecialty], doctor.Name, state.StepData[models.DataKeySlot])
		}
		return fmt.Sprintf("You chose %s, %s at %s. Say confirm to book, or go back to change.",
			state.StepData[models.DataKeySpecialty], doctor.Name, state.StepData[models.DataKeySlot])
	}
	return ""
}

func (f *HealthcareFlow) Apply(ctx context.Context, state *models.FlowState, step Step, answer string) error {
	switch step.ID {
	case models.StepSpecialty:
		state.StepData[models.DataKeySpecialty] = answer
		// Changing specialty invalidates any earlier doctor and slot choice.
		delete(state.StepData, models.DataKeyDoctorID)
		delete(state.StepData, models.DataKeySlot)
		return nil
	case models.StepDoctors:
		for _, d := range f.filteredDoctors(state) {
			if d.Name == answer {
				state.StepData[models.DataKeyDoctorID] = d.ID
				delete(state.StepData, models.DataKeySlot)
				return nil
			}
		}
		return fmt.Errorf("doctor %q not in %s list", answer, state.StepData[models.DataKeySpecialty])
	case models.StepTime:
		state.StepData[models.DataKeySlot] = answer
		return nil
	}
	return fmt.Errorf("step %s does not accept selections", step.ID)
}

// Finalize books the appointment and returns the success announcement.
func (f *HealthcareFlow) Finalize(ctx context.Context, state *models.FlowState) (string, error) {
	doctor, ok := f.selectedDoctor(state)
	if !ok {
		return "", fmt.Errorf("no doctor selected for session %s", state.SessionID)
	}
	booking, err := f.booker.Book(ctx, models.BookAppointmentRequest{
		DoctorSpecialty: state.StepData[models.DataKeySpecialty],
		PreferredDate:   time.Now().Format("2006-01-02"),
		PreferredTime:   state.StepData[models.DataKeySlot],
	})
	if err != nil {
		return "", fmt.Errorf("booking failed: %w", err)
	}
	state.StepData[models.DataKeyBookingID] = booking.ID

	if state.Language == models.LanguageMalayalam {
		return fmt.Sprintf("%s-മായി %s-ന് അപ്പോയിന്റ്മെന്റ് ബുക്ക് ചെയ്തു. റഫറൻസ് %s. ഹോമിലേക്ക് മടങ്ങാൻ ഹോം എന്ന് പറയൂ.",
			doctor.Name, state.StepData[models.DataKeySlot], booking.ID), nil
	}
	return fmt.Sprintf("Your appointment with %s at %s is booked. Reference %s. Say go home to return.",
		doctor.Name, state.StepData[models.DataKeySlot], booking.ID), nil
}

func (f *HealthcareFlow) filteredDoctors(state *models.FlowState) []models.Doctor {
	specialty := state.StepData[models.DataKeySpecialty]
	var out []models.Doctor
	for _, d := range Doctors {
		if d.Specialty == specialty {
			out = append(out, d)
		}
	}
	return out
}

func (f *HealthcareFlow) selectedDoctor(state *models.FlowState) (models.Doctor, bool) {
	id := state.StepData[models.DataKeyDoctorID]
	for _, d := range Doctors {
		if d.ID == id {
			return d, true
		}
	}
	return models.Doctor{}, false
}

package patient

import (
	"encoding/json"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type ContactInfo struct {
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"phone"`
	Address string `json:"address"`
}

type Patient struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name" validate:"notblank"`
	Tags            string          `json:"tags"`
	DateOfBirth     string          `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	ContactInfo     ContactInfo     `json:"contact_info"`
	MedicalHistory  []string        `json:"medical_history"`
	CurrentSymptoms []string        `json:"current_symptoms"`
	LabResults      json.RawMessage `json:"lab_results"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Age returns whole years between the date of birth and now. ok is false when
// no valid date of birth is recorded.
func (p Patient) Age(now time.Time) (age int, ok bool) {
	dob, err := time.Parse(dateLayout, p.DateOfBirth)
	if err != nil {
		return 0, false
	}

	age = now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age, true
}

// Matches reports whether term occurs in the name, email or any current
// symptom, ignoring case.
func (p Patient) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.ContactInfo.Email), term) {
		return true
	}
	for _, s := range p.CurrentSymptoms {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// Filter keeps the patients matching term, preserving order.
func Filter(patients []Patient, term string) []Patient {
	out := make([]Patient, 0, len(patients))
	for _, p := range patients {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}

// splitList decodes the comma separated columns used for history and symptoms.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinList(items []string) string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return strings.Join(cleaned, ",")
}

// normalizeLabResults returns stored lab results as a JSON value; anything
// unreadable becomes an empty list.
func normalizeLabResults(raw []byte) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return json.RawMessage("[]")
	}
	return json.RawMessage(raw)
}

package insight

import "time"

// SymptomProfile is the free-text input of one diagnostic analysis.
type SymptomProfile struct {
	Symptoms       string `json:"symptoms"`
	MedicalHistory string `json:"medical_history"`
	LabResults     string `json:"lab_results"`
	Lifestyle      string `json:"lifestyle"`
	Notes          string `json:"notes"`
}

// ConditionRule maps a keyword set to a fixed suggestion.
type ConditionRule struct {
	Keywords   []string
	Condition  string
	Confidence int
	Reasoning  string
	Evidence   []string
}

// Suggestion is a candidate condition surfaced by keyword matching.
// ID is only unique within the evaluation that produced it.
type Suggestion struct {
	ID         int      `json:"id"`
	Condition  string   `json:"condition"`
	Confidence int      `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Evidence   []string `json:"supporting_evidence"`
}

// DiagnosticRecord is the audit trail of an analysis request.
type DiagnosticRecord struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	PatientID         int64          `json:"patient_id"`
	Profile           SymptomProfile `json:"input_data"`
	PractitionerNotes string         `json:"practitioner_notes"`
	Timestamp         time.Time      `json:"timestamp"`
}

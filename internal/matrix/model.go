package matrix

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"medical-matrix/internal/platform/apperrors"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// coverageSlots is the number of condition slots counted as a complete
// matrix: three per functional system.
const coverageSlots = 21

type FunctionalSystem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var functionalSystems = []FunctionalSystem{
	{Name: "Gastrointestinal", Description: "Digestion, absorption, gut microbiome, inflammation"},
	{Name: "Immune", Description: "Autoimmunity, allergies, infections, inflammation"},
	{Name: "Energy", Description: "Mitochondria, metabolism, fatigue, cellular function"},
	{Name: "Hormonal", Description: "Endocrine system, hormones, reproduction, stress"},
	{Name: "Structural", Description: "Musculoskeletal, connective tissue, movement"},
	{Name: "Mind/Spirit", Description: "Mental health, stress, emotions, cognitive function"},
	{Name: "Detoxification", Description: "Liver function, toxin elimination, environmental health"},
}

// FunctionalSystems returns the seven systems in display order.
func FunctionalSystems() []FunctionalSystem {
	return append([]FunctionalSystem(nil), functionalSystems...)
}

func IsSystem(name string) bool {
	for _, s := range functionalSystems {
		if s.Name == name {
			return true
		}
	}
	return false
}

type Condition struct {
	Name       string `json:"name"`
	Confidence *int   `json:"confidence,omitempty"`
	Source     string `json:"source,omitempty"`
}

type Annotation struct {
	System    string    `json:"system"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Matrix struct {
	ID           int64                  `json:"id"`
	PatientID    int64                  `json:"patient_id"`
	Systems      map[string][]Condition `json:"systems"`
	Annotations  []Annotation           `json:"annotations"`
	Status       Status                 `json:"status"`
	LastModified time.Time              `json:"last_modified"`
}

type Summary struct {
	TotalConditions int    `json:"total_conditions"`
	SystemsAffected int    `json:"systems_affected"`
	CoveragePercent int    `json:"coverage_percent"`
	Status          Status `json:"status"`
}

// NewDraft returns the empty, unsaved matrix shown for a patient without one.
func NewDraft(patientID int64) Matrix {
	return Matrix{
		PatientID:   patientID,
		Systems:     map[string][]Condition{},
		Annotations: []Annotation{},
		Status:      StatusDraft,
	}
}

func (m *Matrix) AddCondition(system string, c Condition) error {
	if !IsSystem(system) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown functional system %q", system))
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return apperrors.NewValidationError("condition name is required")
	}

	if m.Systems == nil {
		m.Systems = map[string][]Condition{}
	}
	m.Systems[system] = append(m.Systems[system], c)
	return nil
}

// RemoveCondition drops the condition at index and reports whether anything
// was removed.
func (m *Matrix) RemoveCondition(system string, index int) bool {
	conditions := m.Systems[system]
	if index < 0 || index >= len(conditions) {
		return false
	}
	m.Systems[system] = append(conditions[:index:index], conditions[index+1:]...)
	return true
}

func (m *Matrix) Annotate(system, text string, at time.Time) error {
	if system != "" && !IsSystem(system) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown functional system %q", system))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.NewValidationError("annotation text is required")
	}
	m.Annotations = append(m.Annotations, Annotation{System: system, Text: text, CreatedAt: at})
	return nil
}

func (m Matrix) Summary() Summary {
	s := Summary{Status: m.Status}
	for _, conditions := range m.Systems {
		s.TotalConditions += len(conditions)
		if len(conditions) > 0 {
			s.SystemsAffected++
		}
	}
	s.CoveragePercent = int(math.Round(float64(s.TotalConditions) / coverageSlots * 100))
	return s
}

// Validate checks a matrix submitted as a whole.
func (m Matrix) Validate() error {
	if m.Status != StatusDraft && m.Status != StatusPublished {
		return apperrors.NewValidationError(fmt.Sprintf("unknown matrix status %q", m.Status))
	}
	for system, conditions := range m.Systems {
		if !IsSystem(system) {
			return apperrors.NewValidationError(fmt.Sprintf("unknown functional system %q", system))
		}
		for _, c := range conditions {
			if strings.TrimSpace(c.Name) == "" {
				return apperrors.NewValidationError("condition name is required")
			}
			if c.Confidence != nil && (*c.Confidence < 0 || *c.Confidence > 100) {
				return apperrors.NewValidationError("condition confidence must be between 0 and 100")
			}
		}
	}
	return nil
}

func decodeSystems(matrixID int64, raw []byte) map[string][]Condition {
	systems := map[string][]Condition{}
	if len(raw) == 0 {
		return systems
	}
	if err := json.Unmarshal(raw, &systems); err != nil || systems == nil {
		log.Warn().Err(err).Int64("matrix_id", matrixID).Msg("discarding unreadable matrix systems")
		return map[string][]Condition{}
	}
	return systems
}

func decodeAnnotations(matrixID int64, raw []byte) []Annotation {
	annotations := []Annotation{}
	if len(raw) == 0 {
		return annotations
	}
	if err := json.Unmarshal(raw, &annotations); err != nil || annotations == nil {
		log.Warn().Err(err).Int64("matrix_id", matrixID).Msg("discarding unreadable matrix annotations")
		return []Annotation{}
	}
	return annotations
}

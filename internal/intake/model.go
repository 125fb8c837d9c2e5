package intake

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"medical-matrix/internal/platform/apperrors"
)

type FormStatus string

const (
	StatusDraft     FormStatus = "draft"
	StatusPublished FormStatus = "published"
)

// QuestionType values match the names already present in stored forms.
type QuestionType string

const (
	QuestionText         QuestionType = "text"
	QuestionLongText     QuestionType = "textarea"
	QuestionSingleChoice QuestionType = "select"
	QuestionMultiChoice  QuestionType = "checkbox"
	QuestionScale        QuestionType = "scale"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionLongText, QuestionSingleChoice, QuestionMultiChoice, QuestionScale:
		return true
	}
	return false
}

func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultiChoice
}

type Scale struct {
	Min       int    `json:"min"`
	Max       int    `json:"max"`
	LowLabel  string `json:"low_label"`
	HighLabel string `json:"high_label"`
}

// UnmarshalJSON also accepts the older {"labels": [low, high]} layout.
func (s *Scale) UnmarshalJSON(data []byte) error {
	var raw struct {
		Min       int      `json:"min"`
		Max       int      `json:"max"`
		LowLabel  string   `json:"low_label"`
		HighLabel string   `json:"high_label"`
		Labels    []string `json:"labels"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Scale{Min: raw.Min, Max: raw.Max, LowLabel: raw.LowLabel, HighLabel: raw.HighLabel}
	if len(raw.Labels) > 0 && s.LowLabel == "" {
		s.LowLabel = raw.Labels[0]
	}
	if len(raw.Labels) > 1 && s.HighLabel == "" {
		s.HighLabel = raw.Labels[1]
	}
	return nil
}

type Question struct {
	ID       int          `json:"id"`
	Type     QuestionType `json:"type" validate:"required"`
	Label    string       `json:"label" validate:"notblank"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
	Scale    *Scale       `json:"scale,omitempty"`
}

type FormDefinition struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title" validate:"notblank"`
	Description  string     `json:"description"`
	Status       FormStatus `json:"status"`
	Questions    []Question `json:"questions" validate:"dive"`
	CreatedAt    time.Time  `json:"created_at"`
	LastModified time.Time  `json:"last_modified"`
}

// NewDraft returns the unsaved form offered by the "new form" action.
func NewDraft() FormDefinition {
	return FormDefinition{
		Title:       "New Intake Form",
		Description: "Patient intake form",
		Status:      StatusDraft,
		Questions:   []Question{},
	}
}

// Clone returns a deep copy.
func (f FormDefinition) Clone() FormDefinition {
	out := f
	out.Questions = make([]Question, len(f.Questions))
	for i, q := range f.Questions {
		out.Questions[i] = q.clone()
	}
	return out
}

func (q Question) clone() Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	if q.Scale != nil {
		sc := *q.Scale
		q.Scale = &sc
	}
	return q
}

// Validate checks the structural invariants of a form definition.
func (f FormDefinition) Validate() error {
	if f.Status != "" && f.Status != StatusDraft && f.Status != StatusPublished {
		return apperrors.NewValidationError(fmt.Sprintf("unknown form status %q", f.Status))
	}

	seen := make(map[int]bool, len(f.Questions))
	for _, q := range f.Questions {
		if seen[q.ID] {
			return apperrors.NewValidationError(fmt.Sprintf("duplicate question id %d", q.ID))
		}
		seen[q.ID] = true

		if !q.Type.Valid() {
			return apperrors.NewValidationError(fmt.Sprintf("question %d has unknown type %q", q.ID, q.Type))
		}
		if q.Type.IsChoice() && len(q.Options) == 0 {
			return apperrors.NewValidationError(fmt.Sprintf("question %d needs at least one option", q.ID))
		}
		if q.Type == QuestionScale {
			if q.Scale == nil {
				return apperrors.NewValidationError(fmt.Sprintf("question %d is missing its scale", q.ID))
			}
			if q.Scale.Min >= q.Scale.Max {
				return apperrors.NewValidationError(fmt.Sprintf("question %d scale min must be below max", q.ID))
			}
		}
	}
	return nil
}

func (f FormDefinition) indexOf(questionID int) int {
	for i, q := range f.Questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

func nextQuestionID(questions []Question) int {
	maxID := 0
	for _, q := range questions {
		if q.ID > maxID {
			maxID = q.ID
		}
	}
	return maxID + 1
}

func newQuestion(id int, t QuestionType) Question {
	q := Question{
		ID:    id,
		Type:  t,
		Label: "New Question",
	}
	switch {
	case t.IsChoice():
		q.Options = []string{"Option 1", "Option 2"}
	case t == QuestionScale:
		q.Scale = &Scale{Min: 1, Max: 5, LowLabel: "Poor", HighLabel: "Excellent"}
	}
	return q
}

// DecodeQuestions parses the stored questions column. Unreadable data yields
// an empty list so a damaged row still opens in the editor.
func DecodeQuestions(formID int64, raw []byte) []Question {
	questions := []Question{}
	if len(raw) == 0 {
		return questions
	}
	if err := json.Unmarshal(raw, &questions); err != nil {
		log.Warn().Err(err).Int64("form_id", formID).Msg("discarding unreadable questions")
		return []Question{}
	}
	if questions == nil {
		questions = []Question{}
	}
	for i := range questions {
		if questions[i].Type.IsChoice() && questions[i].Options == nil {
			questions[i].Options = []string{}
		}
	}
	return questions
}

// EncodeQuestions serialises questions for storage.
func EncodeQuestions(questions []Question) (string, error) {
	if questions == nil {
		questions = []Question{}
	}
	data, err := json.Marshal(questions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

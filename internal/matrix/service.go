package matrix

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"medical-matrix/internal/insight"
	"medical-matrix/internal/platform/apperrors"
)

// SuggestionSource marks conditions placed from a diagnostic suggestion.
const SuggestionSource = "insight"

type Service interface {
	ForPatient(ctx context.Context, patientID int64) (*Matrix, error)
	Get(ctx context.Context, id int64) (*Matrix, error)
	Save(ctx context.Context, m Matrix) (*Matrix, error)
	Delete(ctx context.Context, id int64) error
	AddCondition(ctx context.Context, matrixID int64, system string, c Condition) (*Matrix, error)
	RemoveCondition(ctx context.Context, matrixID int64, system string, index int) (*Matrix, error)
	Annotate(ctx context.Context, matrixID int64, system, text string) (*Matrix, error)
	AddSuggestion(ctx context.Context, matrixID int64, system string, s insight.Suggestion) (*Matrix, error)
}

var tracer = otel.Tracer("medical-matrix/matrix")

type service struct {
	repo Repository
	now  func() time.Time

	// mu serialises read-modify-write edits of stored matrices.
	mu sync.Mutex
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// ForPatient returns the patient's stored matrix, or an unsaved draft.
func (s *service) ForPatient(ctx context.Context, patientID int64) (*Matrix, error) {
	m, err := s.repo.GetByPatient(ctx, patientID)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		draft := NewDraft(patientID)
		draft.LastModified = s.now().UTC()
		return &draft, nil
	}
	return m, err
}

func (s *service) Get(ctx context.Context, id int64) (*Matrix, error) {
	return s.repo.GetByID(ctx, id)
}

// Save writes a whole matrix, creating it when it has no id.
func (s *service) Save(ctx context.Context, m Matrix) (*Matrix, error) {
	ctx, span := tracer.Start(ctx, "matrix.Save")
	defer span.End()

	if m.Status == "" {
		m.Status = StatusDraft
	}
	if m.PatientID <= 0 {
		return nil, apperrors.NewValidationError("patient_id is required")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.LastModified = s.now().UTC()
	if m.ID == 0 {
		if err := s.repo.Create(ctx, &m); err != nil {
			return nil, err
		}
	} else if err := s.repo.Update(ctx, &m); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("matrix.id", m.ID))
	return &m, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) AddCondition(ctx context.Context, matrixID int64, system string, c Condition) (*Matrix, error) {
	return s.edit(ctx, matrixID, func(m *Matrix) (bool, error) {
		return true, m.AddCondition(system, c)
	})
}

// RemoveCondition leaves the matrix untouched when index is out of range.
func (s *service) RemoveCondition(ctx context.Context, matrixID int64, system string, index int) (*Matrix, error) {
	return s.edit(ctx, matrixID, func(m *Matrix) (bool, error) {
		return m.RemoveCondition(system, index), nil
	})
}

func (s *service) Annotate(ctx context.Context, matrixID int64, system, text string) (*Matrix, error) {
	return s.edit(ctx, matrixID, func(m *Matrix) (bool, error) {
		return true, m.Annotate(system, text, s.now().UTC())
	})
}

// AddSuggestion places an evaluator suggestion into a system as a condition
// carrying its confidence.
func (s *service) AddSuggestion(ctx context.Context, matrixID int64, system string, sg insight.Suggestion) (*Matrix, error) {
	confidence := sg.Confidence
	return s.AddCondition(ctx, matrixID, system, Condition{
		Name:       sg.Condition,
		Confidence: &confidence,
		Source:     SuggestionSource,
	})
}

func (s *service) edit(ctx context.Context, matrixID int64, mutate func(*Matrix) (bool, error)) (*Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.repo.GetByID(ctx, matrixID)
	if err != nil {
		return nil, err
	}

	changed, err := mutate(m)
	if err != nil {
		return nil, err
	}
	if !changed {
		return m, nil
	}

	m.LastModified = s.now().UTC()
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

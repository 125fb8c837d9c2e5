package patient

import (
	"context"
	"time"

	"medical-matrix/internal/platform/validation"
)

type Service interface {
	List(ctx context.Context, search string) ([]Patient, error)
	Get(ctx context.Context, id int64) (*Patient, error)
	Create(ctx context.Context, p Patient) (*Patient, error)
	Update(ctx context.Context, id int64, p Patient) (*Patient, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo      Repository
	validator *validation.Validator
	now       func() time.Time
}

func NewService(repo Repository, v *validation.Validator) Service {
	return &service{
		repo:      repo,
		validator: v,
		now:       time.Now,
	}
}

// List returns all patients, narrowed to those matching search when it is
// not blank.
func (s *service) List(ctx context.Context, search string) ([]Patient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(patients, search), nil
}

func (s *service) Get(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, p Patient) (*Patient, error) {
	if err := s.validator.Validate(p); err != nil {
		return nil, err
	}

	p.ID = 0
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	normalize(&p)
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *service) Update(ctx context.Context, id int64, p Patient) (*Patient, error) {
	if err := s.validator.Validate(p); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.ID = id
	p.CreatedAt = existing.CreatedAt
	normalize(&p)
	if err := s.repo.Update(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func normalize(p *Patient) {
	p.MedicalHistory = splitList(joinList(p.MedicalHistory))
	p.CurrentSymptoms = splitList(joinList(p.CurrentSymptoms))
	p.LabResults = normalizeLabResults(p.LabResults)
}

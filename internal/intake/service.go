package intake

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"medical-matrix/internal/platform/validation"
)

type Service interface {
	List(ctx context.Context) ([]FormDefinition, error)
	Get(ctx context.Context, id int64) (*FormDefinition, error)
	Create(ctx context.Context, form FormDefinition) (*FormDefinition, error)
	Update(ctx context.Context, id int64, form FormDefinition) (*FormDefinition, error)
	Publish(ctx context.Context, id int64) (*FormDefinition, error)
	Delete(ctx context.Context, id int64) error
	// Save writes an editor snapshot, creating the record when it has no id yet.
	Save(ctx context.Context, form *FormDefinition) error
}

var tracer = otel.Tracer("medical-matrix/intake")

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

func (s *service) List(ctx context.Context) ([]FormDefinition, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id int64) (*FormDefinition, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, form FormDefinition) (*FormDefinition, error) {
	if form.Status == "" {
		form.Status = StatusDraft
	}
	if form.Questions == nil {
		form.Questions = []Question{}
	}
	if err := s.validate(form); err != nil {
		return nil, err
	}

	form.ID = 0
	form.CreatedAt = s.now().UTC()
	form.LastModified = form.CreatedAt
	if err := s.repo.Create(ctx, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (s *service) Update(ctx context.Context, id int64, form FormDefinition) (*FormDefinition, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.Status == "" {
		form.Status = existing.Status
	}
	if form.Questions == nil {
		form.Questions = []Question{}
	}
	if err := s.validate(form); err != nil {
		return nil, err
	}

	form.ID = id
	form.CreatedAt = existing.CreatedAt
	form.LastModified = s.now().UTC()
	if err := s.repo.Update(ctx, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (s *service) Publish(ctx context.Context, id int64) (*FormDefinition, error) {
	form, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	form.Status = StatusPublished
	form.LastModified = s.now().UTC()
	if err := s.repo.Update(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Save accepts half-typed titles and labels; only the structural invariants
// are checked.
func (s *service) Save(ctx context.Context, form *FormDefinition) error {
	ctx, span := tracer.Start(ctx, "intake.Save")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("intake.form_id", form.ID),
		attribute.Int("intake.questions", len(form.Questions)),
	)

	if err := form.Validate(); err != nil {
		return err
	}
	if form.Status == "" {
		form.Status = StatusDraft
	}

	form.LastModified = s.now().UTC()
	if form.ID == 0 {
		form.CreatedAt = form.LastModified
		return s.repo.Create(ctx, form)
	}
	return s.repo.Update(ctx, form)
}

func (s *service) validate(form FormDefinition) error {
	if err := s.validator.Validate(form); err != nil {
		return err
	}
	return form.Validate()
}

package insight

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"medical-matrix/internal/platform/apperrors"
	"medical-matrix/internal/platform/observability"
)

// ReportSender delivers a rendered analysis to the practitioner.
type ReportSender interface {
	SendPractitionerReport(ctx context.Context, rec DiagnosticRecord, suggestions []Suggestion) error
}

type Service interface {
	Analyze(ctx context.Context, patientID int64, profile SymptomProfile) []Suggestion
	Get(ctx context.Context, id int64) (*DiagnosticRecord, error)
	ListForPatient(ctx context.Context, patientID int64) ([]DiagnosticRecord, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	Delete(ctx context.Context, id int64) error
	SendReport(ctx context.Context, id int64) error
}

const auditTimeout = 10 * time.Second

var tracer = otel.Tracer("medical-matrix/insight")

type service struct {
	repo   Repository
	report ReportSender
	now    func() time.Time
}

func NewService(repo Repository, report ReportSender) Service {
	return &service{
		repo:   repo,
		report: report,
		now:    time.Now,
	}
}

// Analyze returns suggestions immediately. The audit record is written in the
// background and a failure there is only logged.
func (s *service) Analyze(ctx context.Context, patientID int64, profile SymptomProfile) []Suggestion {
	ctx, span := tracer.Start(ctx, "insight.Analyze")
	defer span.End()

	rec := DiagnosticRecord{
		Name:      fmt.Sprintf("Analysis for Patient %d", patientID),
		PatientID: patientID,
		Profile:   profile,
		Timestamp: s.now().UTC(),
	}

	auditCtx := context.WithoutCancel(ctx)
	go func() {
		auditCtx, cancel := context.WithTimeout(auditCtx, auditTimeout)
		defer cancel()

		if err := s.repo.Create(auditCtx, &rec); err != nil {
			observability.LoggerFromContext(auditCtx).Warn().Err(err).
				Int64("patient_id", patientID).
				Msg("failed to save diagnostic analysis")
		}
	}()

	suggestions := Evaluate(profile)
	span.SetAttributes(attribute.Int("insight.suggestions", len(suggestions)))
	return suggestions
}

func (s *service) Get(ctx context.Context, id int64) (*DiagnosticRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListForPatient(ctx context.Context, patientID int64) ([]DiagnosticRecord, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *service) UpdateNotes(ctx context.Context, id int64, notes string) error {
	return s.repo.UpdateNotes(ctx, id, notes)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// SendReport re-evaluates a stored analysis and sends it to the practitioner.
// Evaluation is deterministic, so the report matches what the practitioner saw.
func (s *service) SendReport(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "insight.SendReport")
	defer span.End()

	if s.report == nil {
		return apperrors.NewValidationError("practitioner reports are not configured")
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.report.SendPractitionerReport(ctx, *rec, Evaluate(rec.Profile)); err != nil {
		return apperrors.NewExternalError("failed to send practitioner report", err)
	}
	return nil
}

package insight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"medical-matrix/internal/platform/apperrors"
)

type Repository interface {
	Create(ctx context.Context, rec *DiagnosticRecord) error
	GetByID(ctx context.Context, id int64) (*DiagnosticRecord, error)
	ListByPatient(ctx context.Context, patientID int64) ([]DiagnosticRecord, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	Delete(ctx context.Context, id int64) error
}

const diagnosticsTable = "diagnostics"

var diagnosticColumns = []interface{}{
	"id", "name", "patient_id",
	"input_data_symptoms", "input_data_medical_history", "input_data_lab_results",
	"input_data_lifestyle", "input_data_notes",
	"practitioner_notes", "timestamp",
}

type postgresRepo struct {
	db     *sql.DB
	goquDB *goqu.Database
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db, goquDB: goqu.New("postgres", db)}
}

func (r *postgresRepo) Create(ctx context.Context, rec *DiagnosticRecord) error {
	query, args, err := r.goquDB.Insert(diagnosticsTable).Rows(goqu.Record{
		"name":                       rec.Name,
		"patient_id":                 rec.PatientID,
		"input_data_symptoms":        rec.Profile.Symptoms,
		"input_data_medical_history": rec.Profile.MedicalHistory,
		"input_data_lab_results":     rec.Profile.LabResults,
		"input_data_lifestyle":       rec.Profile.Lifestyle,
		"input_data_notes":           rec.Profile.Notes,
		"practitioner_notes":         rec.PractitionerNotes,
		"timestamp":                  rec.Timestamp,
	}).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build diagnostic insert query", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID); err != nil {
		return apperrors.NewInternalError("failed to create diagnostic record", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*DiagnosticRecord, error) {
	query, args, err := r.goquDB.From(diagnosticsTable).
		Select(diagnosticColumns...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build diagnostic query", err)
	}

	rec, err := scanDiagnostic(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("diagnostic %d not found", id))
		}
		return nil, apperrors.NewInternalError("failed to load diagnostic record", err)
	}
	return rec, nil
}

func (r *postgresRepo) ListByPatient(ctx context.Context, patientID int64) ([]DiagnosticRecord, error) {
	query, args, err := r.goquDB.From(diagnosticsTable).
		Select(diagnosticColumns...).
		Where(goqu.C("patient_id").Eq(patientID)).
		Order(goqu.C("timestamp").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build diagnostic list query", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list diagnostic records", err)
	}
	defer rows.Close()

	records := []DiagnosticRecord{}
	for rows.Next() {
		rec, err := scanDiagnostic(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan diagnostic record", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate diagnostic records", err)
	}
	return records, nil
}

func (r *postgresRepo) UpdateNotes(ctx context.Context, id int64, notes string) error {
	query, args, err := r.goquDB.Update(diagnosticsTable).
		Set(goqu.Record{"practitioner_notes": notes}).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build diagnostic update query", err)
	}
	return r.execOne(ctx, id, query, args)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	query, args, err := r.goquDB.Delete(diagnosticsTable).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build diagnostic delete query", err)
	}
	return r.execOne(ctx, id, query, args)
}

func (r *postgresRepo) execOne(ctx context.Context, id int64, query string, args []interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to write diagnostic record", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("diagnostic %d not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDiagnostic(row rowScanner) (*DiagnosticRecord, error) {
	var rec DiagnosticRecord
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.PatientID,
		&rec.Profile.Symptoms,
		&rec.Profile.MedicalHistory,
		&rec.Profile.LabResults,
		&rec.Profile.Lifestyle,
		&rec.Profile.Notes,
		&rec.PractitionerNotes,
		&rec.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

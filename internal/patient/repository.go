package patient

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
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	List(ctx context.Context) ([]Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
}

const patientsTable = "patients"

var patientColumns = []interface{}{
	"id", "name", "tags", "date_of_birth",
	"contact_info_email", "contact_info_phone", "contact_info_address",
	"medical_history", "current_symptoms", "lab_results", "created_at",
}

type postgresRepo struct {
	db     *sql.DB
	goquDB *goqu.Database
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db, goquDB: goqu.New("postgres", db)}
}

func record(p *Patient) goqu.Record {
	return goqu.Record{
		"name":                 p.Name,
		"tags":                 p.Tags,
		"date_of_birth":        p.DateOfBirth,
		"contact_info_email":   p.ContactInfo.Email,
		"contact_info_phone":   p.ContactInfo.Phone,
		"contact_info_address": p.ContactInfo.Address,
		"medical_history":      joinList(p.MedicalHistory),
		"current_symptoms":     joinList(p.CurrentSymptoms),
		"lab_results":          string(normalizeLabResults(p.LabResults)),
	}
}

func (r *postgresRepo) Create(ctx context.Context, p *Patient) error {
	rec := record(p)
	rec["created_at"] = p.CreatedAt

	query, args, err := r.goquDB.Insert(patientsTable).Rows(rec).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build patient insert query", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID); err != nil {
		return apperrors.NewInternalError("failed to create patient", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*Patient, error) {
	query, args, err := r.goquDB.From(patientsTable).
		Select(patientColumns...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build patient query", err)
	}

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient %d not found", id))
		}
		return nil, apperrors.NewInternalError("failed to load patient", err)
	}
	return p, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]Patient, error) {
	query, args, err := r.goquDB.From(patientsTable).
		Select(patientColumns...).
		Order(goqu.C("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build patient list query", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list patients", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan patient", err)
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate patients", err)
	}
	return patients, nil
}

func (r *postgresRepo) Update(ctx context.Context, p *Patient) error {
	query, args, err := r.goquDB.Update(patientsTable).
		Set(record(p)).
		Where(goqu.C("id").Eq(p.ID)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build patient update query", err)
	}
	return r.execOne(ctx, p.ID, query, args)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	query, args, err := r.goquDB.Delete(patientsTable).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build patient delete query", err)
	}
	return r.execOne(ctx, id, query, args)
}

func (r *postgresRepo) execOne(ctx context.Context, id int64, query string, args []interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to write patient", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("patient %d not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var (
		p                 Patient
		history, symptoms string
		labResults        []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Tags,
		&p.DateOfBirth,
		&p.ContactInfo.Email,
		&p.ContactInfo.Phone,
		&p.ContactInfo.Address,
		&history,
		&symptoms,
		&labResults,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.MedicalHistory = splitList(history)
	p.CurrentSymptoms = splitList(symptoms)
	p.LabResults = normalizeLabResults(labResults)
	return &p, nil
}

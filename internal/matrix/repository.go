package matrix

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"medical-matrix/internal/platform/apperrors"
)

type Repository interface {
	Create(ctx context.Context, m *Matrix) error
	GetByID(ctx context.Context, id int64) (*Matrix, error)
	GetByPatient(ctx context.Context, patientID int64) (*Matrix, error)
	Update(ctx context.Context, m *Matrix) error
	Delete(ctx context.Context, id int64) error
}

const matricesTable = "matrices"

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

var matrixColumns = []interface{}{
	"id", "patient_id", "systems", "annotations", "status", "last_modified",
}

type postgresRepo struct {
	db     *sql.DB
	goquDB *goqu.Database
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db, goquDB: goqu.New("postgres", db)}
}

func (r *postgresRepo) Create(ctx context.Context, m *Matrix) error {
	rec, err := record(m)
	if err != nil {
		return err
	}
	rec["patient_id"] = m.PatientID

	query, args, err := r.goquDB.Insert(matricesTable).Rows(rec).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build matrix insert query", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&m.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqForeignKeyViolation:
				return apperrors.NewNotFoundError(fmt.Sprintf("patient %d not found", m.PatientID))
			case pqUniqueViolation:
				return apperrors.NewConflictError(fmt.Sprintf("patient %d already has a matrix", m.PatientID))
			}
		}
		return apperrors.NewInternalError("failed to create matrix", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*Matrix, error) {
	return r.getOne(ctx, goqu.C("id").Eq(id), fmt.Sprintf("matrix %d not found", id))
}

func (r *postgresRepo) GetByPatient(ctx context.Context, patientID int64) (*Matrix, error) {
	return r.getOne(ctx, goqu.C("patient_id").Eq(patientID), fmt.Sprintf("no matrix for patient %d", patientID))
}

func (r *postgresRepo) getOne(ctx context.Context, where goqu.Expression, notFound string) (*Matrix, error) {
	query, args, err := r.goquDB.From(matricesTable).
		Select(matrixColumns...).
		Where(where).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build matrix query", err)
	}

	m, err := scanMatrix(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(notFound)
		}
		return nil, apperrors.NewInternalError("failed to load matrix", err)
	}
	return m, nil
}

func (r *postgresRepo) Update(ctx context.Context, m *Matrix) error {
	rec, err := record(m)
	if err != nil {
		return err
	}

	query, args, err := r.goquDB.Update(matricesTable).
		Set(rec).
		Where(goqu.C("id").Eq(m.ID)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build matrix update query", err)
	}
	return r.execOne(ctx, m.ID, query, args)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	query, args, err := r.goquDB.Delete(matricesTable).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build matrix delete query", err)
	}
	return r.execOne(ctx, id, query, args)
}

func (r *postgresRepo) execOne(ctx context.Context, id int64, query string, args []interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to write matrix", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("matrix %d not found", id))
	}
	return nil
}

func record(m *Matrix) (goqu.Record, error) {
	systems := m.Systems
	if systems == nil {
		systems = map[string][]Condition{}
	}
	systemsJSON, err := json.Marshal(systems)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode matrix systems", err)
	}

	annotations := m.Annotations
	if annotations == nil {
		annotations = []Annotation{}
	}
	annotationsJSON, err := json.Marshal(annotations)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode matrix annotations", err)
	}

	return goqu.Record{
		"systems":       string(systemsJSON),
		"annotations":   string(annotationsJSON),
		"status":        m.Status,
		"last_modified": m.LastModified,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatrix(row rowScanner) (*Matrix, error) {
	var (
		m                    Matrix
		systems, annotations []byte
	)
	if err := row.Scan(&m.ID, &m.PatientID, &systems, &annotations, &m.Status, &m.LastModified); err != nil {
		return nil, err
	}
	m.Systems = decodeSystems(m.ID, systems)
	m.Annotations = decodeAnnotations(m.ID, annotations)
	return &m, nil
}

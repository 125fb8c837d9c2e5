package intake

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
	Create(ctx context.Context, form *FormDefinition) error
	GetByID(ctx context.Context, id int64) (*FormDefinition, error)
	List(ctx context.Context) ([]FormDefinition, error)
	Update(ctx context.Context, form *FormDefinition) error
	Delete(ctx context.Context, id int64) error
}

const formsTable = "intake_forms"

var formColumns = []interface{}{
	"id", "title", "description", "status", "questions", "created_at", "last_modified",
}

type postgresRepo struct {
	db     *sql.DB
	goquDB *goqu.Database
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db, goquDB: goqu.New("postgres", db)}
}

func (r *postgresRepo) Create(ctx context.Context, form *FormDefinition) error {
	questions, err := EncodeQuestions(form.Questions)
	if err != nil {
		return apperrors.NewInternalError("failed to encode form questions", err)
	}

	query, args, err := r.goquDB.Insert(formsTable).Rows(goqu.Record{
		"title":         form.Title,
		"description":   form.Description,
		"status":        form.Status,
		"questions":     questions,
		"created_at":    form.CreatedAt,
		"last_modified": form.LastModified,
	}).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build form insert query", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&form.ID); err != nil {
		return apperrors.NewInternalError("failed to create intake form", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*FormDefinition, error) {
	query, args, err := r.goquDB.From(formsTable).
		Select(formColumns...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build form query", err)
	}

	form, err := scanForm(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("intake form %d not found", id))
		}
		return nil, apperrors.NewInternalError("failed to load intake form", err)
	}
	return form, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]FormDefinition, error) {
	query, args, err := r.goquDB.From(formsTable).
		Select(formColumns...).
		Order(goqu.C("last_modified").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build form list query", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list intake forms", err)
	}
	defer rows.Close()

	forms := []FormDefinition{}
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan intake form", err)
		}
		forms = append(forms, *form)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate intake forms", err)
	}
	return forms, nil
}

func (r *postgresRepo) Update(ctx context.Context, form *FormDefinition) error {
	questions, err := EncodeQuestions(form.Questions)
	if err != nil {
		return apperrors.NewInternalError("failed to encode form questions", err)
	}

	query, args, err := r.goquDB.Update(formsTable).
		Set(goqu.Record{
			"title":         form.Title,
			"description":   form.Description,
			"status":        form.Status,
			"questions":     questions,
			"last_modified": form.LastModified,
		}).
		Where(goqu.C("id").Eq(form.ID)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build form update query", err)
	}
	return r.execOne(ctx, form.ID, query, args)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	query, args, err := r.goquDB.Delete(formsTable).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build form delete query", err)
	}
	return r.execOne(ctx, id, query, args)
}

func (r *postgresRepo) execOne(ctx context.Context, id int64, query string, args []interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to write intake form", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("intake form %d not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanForm(row rowScanner) (*FormDefinition, error) {
	var (
		form      FormDefinition
		questions []byte
	)
	err := row.Scan(
		&form.ID,
		&form.Title,
		&form.Description,
		&form.Status,
		&questions,
		&form.CreatedAt,
		&form.LastModified,
	)
	if err != nil {
		return nil, err
	}
	form.Questions = DecodeQuestions(form.ID, questions)
	return &form, nil
}

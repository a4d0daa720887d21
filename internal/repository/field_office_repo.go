package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/funrun2025/registration-service/internal/model"
)

type FieldOfficeRepo struct{ DB *sql.DB }

func NewFieldOfficeRepo(db *sql.DB) *FieldOfficeRepo { return &FieldOfficeRepo{DB: db} }

// GetByCode resolves a field office from its public form code.
func (r *FieldOfficeRepo) GetByCode(ctx context.Context, code string) (model.FieldOffice, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	var fo model.FieldOffice
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, code, name FROM field_offices WHERE code=? LIMIT 1",
		code).Scan(&fo.ID, &fo.Code, &fo.Name)
	if err == sql.ErrNoRows {
		return fo, ErrOfficeNotFound
	}
	return fo, err
}

// GetByID fetches a field office by primary key.
func (r *FieldOfficeRepo) GetByID(ctx context.Context, id uint64) (model.FieldOffice, error) {
	var fo model.FieldOffice
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, code, name FROM field_offices WHERE id=? LIMIT 1",
		id).Scan(&fo.ID, &fo.Code, &fo.Name)
	if err == sql.ErrNoRows {
		return fo, ErrOfficeNotFound
	}
	return fo, err
}

// List returns every field office ordered by name.  The set is small and
// static, so callers may cache the response.
func (r *FieldOfficeRepo) List(ctx context.Context) ([]model.FieldOffice, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, code, name FROM field_offices ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FieldOffice
	for rows.Next() {
		var fo model.FieldOffice
		if err := rows.Scan(&fo.ID, &fo.Code, &fo.Name); err != nil {
			return nil, err
		}
		out = append(out, fo)
	}
	return out, rows.Err()
}

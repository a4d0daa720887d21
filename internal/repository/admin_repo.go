package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/funrun2025/registration-service/internal/model"
	"github.com/funrun2025/registration-service/internal/utils"
)

type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// GetByUsername fetches an admin account by its normalized username.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (model.AdminUser, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var u model.AdminUser
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, display_name, field_office_id, is_main_admin, is_monitor, created_at
		 FROM admin_users WHERE username=? LIMIT 1`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName,
		&u.FieldOfficeID, &u.IsMainAdmin, &u.IsMonitor, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts an admin account with a bcrypt-hashed password and returns
// its id.  Used by the seeding command, not by any public endpoint.
func (r *AdminRepo) Create(ctx context.Context, username, password, displayName string, fieldOfficeID uint64, isMainAdmin, isMonitor bool, cost int) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO admin_users (username, password_hash, display_name, field_office_id, is_main_admin, is_monitor)
		 VALUES (?,?,?,?,?,?)`,
		username, hash, displayName, fieldOfficeID, isMainAdmin, isMonitor)
	if err != nil {
		// MySQL duplicate-key error code for the unique username index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

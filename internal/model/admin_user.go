package model

import "time"

// Admin roles.  A field admin manages registrations of a single office, a
// main admin sees every office, and RD/ARD is a read-only monitoring role.
const (
	RoleFieldAdmin = "field_admin"
	RoleMainAdmin  = "main_admin"
	RoleRDARD      = "rd_ard"
)

// ValidRole reports whether s is one of the three known admin roles.
func ValidRole(s string) bool {
	switch s {
	case RoleFieldAdmin, RoleMainAdmin, RoleRDARD:
		return true
	}
	return false
}

// AdminUser represents an administrator record as stored in the
// `admin_users` table.  Roles are not stored directly: IsMainAdmin and
// IsMonitor flags are combined into a role at login time (monitor wins,
// then main admin, otherwise field admin).
//
// Fields:
//
//	ID            – primary key identifier.
//	Username      – unique login name.
//	PasswordHash  – bcrypt hashed password.
//	DisplayName   – human-readable name shown after login.
//	FieldOfficeID – office this admin belongs to.
//	IsMainAdmin   – cross-office administrative visibility.
//	IsMonitor     – read-only RD/ARD monitoring account.
//	CreatedAt     – timestamp of creation.
type AdminUser struct {
	ID            uint64    // admin_users.id
	Username      string    // admin_users.username
	PasswordHash  string    // admin_users.password_hash
	DisplayName   string    // admin_users.display_name
	FieldOfficeID uint64    // admin_users.field_office_id
	IsMainAdmin   bool      // admin_users.is_main_admin
	IsMonitor     bool      // admin_users.is_monitor
	CreatedAt     time.Time // admin_users.created_at
}

// Role derives the effective role for this account.
func (u AdminUser) Role() string {
	switch {
	case u.IsMonitor:
		return RoleRDARD
	case u.IsMainAdmin:
		return RoleMainAdmin
	default:
		return RoleFieldAdmin
	}
}

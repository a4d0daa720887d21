package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/funrun2025/registration-service/internal/model"
)

// RegistrationRepo covers individual registrations, group registrations and
// the participants owned by groups, including the status state machine.
type RegistrationRepo struct{ DB *sql.DB }

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{DB: db} }

// ---- submissions ----

// CreateIndividual inserts a pending individual registration and returns
// its id.
func (r *RegistrationRepo) CreateIndividual(ctx context.Context, reg model.IndividualRegistration) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO individual_registrations
		 (full_name, age, gender, contact_number, email_address, address, field_office_id, receipt_url, status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		reg.FullName, reg.Age, reg.Gender, reg.ContactNumber, reg.Email, reg.Address,
		reg.FieldOfficeID, reg.ReceiptURL, model.StatusPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateGroup inserts a pending group registration together with its
// participants in one transaction, so a half-written roster never becomes
// visible.  Returns the new group id.
func (r *RegistrationRepo) CreateGroup(ctx context.Context, g model.GroupRegistration, participants []model.GroupParticipant) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO group_registrations
		 (agency_name, contact_number, field_office_id, excel_file_url, receipt_url, status)
		 VALUES (?,?,?,?,?,?)`,
		g.AgencyName, g.ContactNumber, g.FieldOfficeID, g.ExcelFileURL, g.ReceiptURL, model.StatusPending)
	if err != nil {
		return 0, err
	}
	gid, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, p := range participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_participants (group_registration_id, full_name, age, gender, email_address)
			 VALUES (?,?,?,?,?)`,
			gid, p.FullName, p.Age, p.Gender, p.Email); err != nil {
			return 0, fmt.Errorf("insert participant %q: %w", p.FullName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(gid), nil
}

// ---- reads ----

const individualCols = "id, full_name, age, gender, contact_number, email_address, address, field_office_id, receipt_url, status, or_number, submitted_at"

func scanIndividual(s interface{ Scan(...any) error }) (model.IndividualRegistration, error) {
	var reg model.IndividualRegistration
	err := s.Scan(&reg.ID, &reg.FullName, &reg.Age, &reg.Gender, &reg.ContactNumber,
		&reg.Email, &reg.Address, &reg.FieldOfficeID, &reg.ReceiptURL,
		&reg.Status, &reg.ORNumber, &reg.SubmittedAt)
	return reg, err
}

// GetIndividual fetches one individual registration.
func (r *RegistrationRepo) GetIndividual(ctx context.Context, id uint64) (model.IndividualRegistration, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+individualCols+" FROM individual_registrations WHERE id=? LIMIT 1", id)
	reg, err := scanIndividual(row)
	if err == sql.ErrNoRows {
		return reg, ErrNotFound
	}
	return reg, err
}

// ListIndividual returns individual registrations newest-first.  A non-nil
// officeID restricts the result to one field office (field-admin scoping);
// nil returns every office (main admin, RD/ARD).
func (r *RegistrationRepo) ListIndividual(ctx context.Context, officeID *uint64) ([]model.IndividualRegistration, error) {
	q := "SELECT " + individualCols + " FROM individual_registrations"
	var args []any
	if officeID != nil {
		q += " WHERE field_office_id=?"
		args = append(args, *officeID)
	}
	q += " ORDER BY submitted_at DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.IndividualRegistration
	for rows.Next() {
		reg, err := scanIndividual(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

const groupCols = "id, agency_name, contact_number, field_office_id, excel_file_url, receipt_url, status, or_number, submitted_at"

func scanGroup(s interface{ Scan(...any) error }) (model.GroupRegistration, error) {
	var g model.GroupRegistration
	err := s.Scan(&g.ID, &g.AgencyName, &g.ContactNumber, &g.FieldOfficeID,
		&g.ExcelFileURL, &g.ReceiptURL, &g.Status, &g.ORNumber, &g.SubmittedAt)
	return g, err
}

// GetGroup fetches one group registration.
func (r *RegistrationRepo) GetGroup(ctx context.Context, id uint64) (model.GroupRegistration, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+groupCols+" FROM group_registrations WHERE id=? LIMIT 1", id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	return g, err
}

// ListGroup returns group registrations newest-first, optionally scoped to
// one field office.
func (r *RegistrationRepo) ListGroup(ctx context.Context, officeID *uint64) ([]model.GroupRegistration, error) {
	q := "SELECT " + groupCols + " FROM group_registrations"
	var args []any
	if officeID != nil {
		q += " WHERE field_office_id=?"
		args = append(args, *officeID)
	}
	q += " ORDER BY submitted_at DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GroupRegistration
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGroupParticipants returns the participants of one group ordered by name.
func (r *RegistrationRepo) GetGroupParticipants(ctx context.Context, groupID uint64) ([]model.GroupParticipant, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, group_registration_id, full_name, age, gender, email_address, or_number
		 FROM group_participants WHERE group_registration_id=? ORDER BY full_name`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GroupParticipant
	for rows.Next() {
		var p model.GroupParticipant
		if err := rows.Scan(&p.ID, &p.GroupRegistrationID, &p.FullName, &p.Age, &p.Gender, &p.Email, &p.ORNumber); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---- status state machine ----

// ValidateTransition checks the transition preconditions without touching
// storage: the target must be a known status, the current status must be
// pending (approved and rejected are terminal), an approval requires an
// 8-digit OR number, and any other target forbids one.
func ValidateTransition(current, target, orNumber string) error {
	switch target {
	case model.StatusApproved:
		if !model.ValidORNumber(orNumber) {
			return ErrInvalidORNumber
		}
	case model.StatusRejected, model.StatusPending:
		if orNumber != "" {
			return ErrInvalidORNumber
		}
	default:
		return ErrInvalidTransition
	}
	if current != model.StatusPending {
		return ErrInvalidTransition
	}
	return nil
}

// Transition applies a status change to an individual or group
// registration.  Preconditions are validated before any write; on group
// approval the OR number is cascaded onto every participant in the same
// transaction as the parent update, so the cascade is atomic.
func (r *RegistrationRepo) Transition(ctx context.Context, id uint64, typ, target, orNumber string) error {
	var current string
	var table string
	switch typ {
	case model.TypeIndividual:
		table = "individual_registrations"
	case model.TypeGroup:
		table = "group_registrations"
	default:
		return ErrInvalidTransition
	}
	err := r.DB.QueryRowContext(ctx,
		"SELECT status FROM "+table+" WHERE id=? LIMIT 1", id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := ValidateTransition(current, target, orNumber); err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if target == model.StatusApproved {
		if _, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET status=?, or_number=? WHERE id=? AND status=?",
			target, orNumber, id, model.StatusPending); err != nil {
			return err
		}
		if typ == model.TypeGroup {
			if _, err := tx.ExecContext(ctx,
				"UPDATE group_participants SET or_number=? WHERE group_registration_id=?",
				orNumber, id); err != nil {
				return fmt.Errorf("cascade OR number: %w", err)
			}
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET status=?, or_number=NULL WHERE id=? AND status=?",
			target, id, model.StatusPending); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReconcileGroupORNumbers re-applies the approval cascade for any
// participant whose OR number does not match its approved parent's.  The
// operation is idempotent and exists as an explicit maintenance repair for
// drift introduced outside the transactional path (manual edits, restores).
// Returns the number of participant rows fixed.
func (r *RegistrationRepo) ReconcileGroupORNumbers(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE group_participants gp
		 JOIN group_registrations g ON g.id = gp.group_registration_id
		 SET gp.or_number = g.or_number
		 WHERE g.status = ? AND g.or_number IS NOT NULL
		   AND (gp.or_number IS NULL OR gp.or_number <> g.or_number)`,
		model.StatusApproved)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- deletes ----

// DeleteIndividual removes a single individual registration.
func (r *RegistrationRepo) DeleteIndividual(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM individual_registrations WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group registration and its participants.  The
// participants go first, inside the same transaction, so no orphan rows can
// survive the parent.
func (r *RegistrationRepo) DeleteGroup(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM group_participants WHERE group_registration_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM group_registrations WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ---- aggregates ----

// Stats computes per-status counts for dashboards.  A non-nil officeID
// scopes every count to one field office.
func (r *RegistrationRepo) Stats(ctx context.Context, officeID *uint64) (model.RegistrationStats, error) {
	var stats model.RegistrationStats

	ind, err := r.statusCounts(ctx, "individual_registrations", officeID)
	if err != nil {
		return stats, err
	}
	grp, err := r.statusCounts(ctx, "group_registrations", officeID)
	if err != nil {
		return stats, err
	}

	pq := "SELECT COUNT(*) FROM group_participants"
	var args []any
	if officeID != nil {
		pq += ` WHERE group_registration_id IN (SELECT id FROM group_registrations WHERE field_office_id=?)`
		args = append(args, *officeID)
	}
	var participants int
	if err := r.DB.QueryRowContext(ctx, pq, args...).Scan(&participants); err != nil {
		return stats, err
	}

	stats.Individual = ind
	stats.Group.StatusCounts = grp
	stats.Group.Participants = participants
	stats.Totals.Registrations = ind.Total + grp.Total
	stats.Totals.Participants = ind.Total + participants
	stats.Totals.Pending = ind.Pending + grp.Pending
	stats.Totals.Approved = ind.Approved + grp.Approved
	stats.Totals.Rejected = ind.Rejected + grp.Rejected
	return stats, nil
}

func (r *RegistrationRepo) statusCounts(ctx context.Context, table string, officeID *uint64) (model.StatusCounts, error) {
	q := `SELECT
		COUNT(*),
		COALESCE(SUM(status='pending'),0),
		COALESCE(SUM(status='approved'),0),
		COALESCE(SUM(status='rejected'),0)
	 FROM ` + table
	var args []any
	if officeID != nil {
		q += " WHERE field_office_id=?"
		args = append(args, *officeID)
	}
	var c model.StatusCounts
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&c.Total, &c.Pending, &c.Approved, &c.Rejected)
	return c, err
}

// MasterList merges individual registrants and group participants into one
// participant view.  Group participants carry their parent's status.
func (r *RegistrationRepo) MasterList(ctx context.Context, officeID *uint64) ([]model.Participant, error) {
	q := `SELECT id, full_name, age, gender, 'individual', status, or_number
	      FROM individual_registrations`
	var args []any
	if officeID != nil {
		q += " WHERE field_office_id=?"
		args = append(args, *officeID)
	}
	q += `
	      UNION ALL
	      SELECT gp.id, gp.full_name, gp.age, gp.gender, 'group', g.status, gp.or_number
	      FROM group_participants gp
	      JOIN group_registrations g ON g.id = gp.group_registration_id`
	if officeID != nil {
		q += " WHERE g.field_office_id=?"
		args = append(args, *officeID)
	}

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.FullName, &p.Age, &p.Gender, &p.Source, &p.Status, &p.ORNumber); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

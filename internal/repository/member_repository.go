package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/gymdesk/internal/model"
)

// MemberRepo owns the users table (paying members).  The membership_*
// and current_membership_id columns are a copy of the current
// membership and are only written through the Tx methods the ledger uses.
type MemberRepo struct {
	db *sql.DB
}

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

const memberColumns = `id, name, email, phone, training_goal, membership_type, membership_status,
	membership_start_date, membership_end_date, current_membership_id, emergency_contact_name,
	emergency_contact_phone, medical_notes, cancellation_reason, assigned_seller_id, lead_id,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content, created_at, updated_at`

func scanMember(s scanner) (*model.Member, error) {
	var (
		m                  model.Member
		status             string
		start, end         sql.NullTime
		current, seller, l sql.NullInt64
	)
	err := s.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.TrainingGoal, &m.MembershipType, &status,
		&start, &end, &current, &m.EmergencyContactName,
		&m.EmergencyContactPhone, &m.MedicalNotes, &m.CancellationReason, &seller, &l,
		&m.UTMSource, &m.UTMMedium, &m.UTMCampaign, &m.UTMTerm, &m.UTMContent, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// legacy rows may still carry Spanish values
	m.MembershipStatus = model.NormalizeMemberStatus(status)
	m.MembershipStartDate = ptrTime(start)
	m.MembershipEndDate = ptrTime(end)
	m.CurrentMembershipID = ptrUint64(current)
	m.AssignedSellerID = ptrUint64(seller)
	m.LeadID = ptrUint64(l)
	return &m, nil
}

// CreateTx inserts m inside tx.  A second member for the same lead_id
// violates the unique key and yields ErrConflict.
func (r *MemberRepo) CreateTx(ctx context.Context, tx DBTX, m *model.Member) error {
	const q = `INSERT INTO users (name, email, phone, training_goal, membership_type, membership_status,
		emergency_contact_name, emergency_contact_phone, medical_notes, assigned_seller_id, lead_id,
		utm_source, utm_medium, utm_campaign, utm_term, utm_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, m.Name, strings.ToLower(strings.TrimSpace(m.Email)), m.Phone,
		m.TrainingGoal, m.MembershipType, m.MembershipStatus,
		m.EmergencyContactName, m.EmergencyContactPhone, m.MedicalNotes, nullable(m.AssignedSellerID), nullable(m.LeadID),
		m.UTMSource, m.UTMMedium, m.UTMCampaign, m.UTMTerm, m.UTMContent)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := lastID(res)
	if err != nil {
		return err
	}
	created, err := r.GetByIDTx(ctx, tx, id)
	if err != nil {
		return err
	}
	*m = *created
	return nil
}

func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (*model.Member, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *MemberRepo) GetByIDTx(ctx context.Context, tx DBTX, id uint64) (*model.Member, error) {
	m, err := scanMember(tx.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// List returns members matching f ordered by name.  The status filter
// also matches the legacy synonyms stored in old rows.
func (r *MemberRepo) List(ctx context.Context, f model.MemberFilter) ([]model.Member, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		vals := statusSpellings(f.Status)
		where = append(where, "membership_status IN (?"+strings.Repeat(", ?", len(vals)-1)+")")
		for _, v := range vals {
			args = append(args, v)
		}
	}
	if f.SellerID != 0 {
		where = append(where, "assigned_seller_id = ?")
		args = append(args, f.SellerID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, "(name LIKE ? OR email LIKE ? OR phone LIKE ?)")
		args = append(args, like, like, like)
	}
	q := "SELECT " + memberColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name, id LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit, 100, 1000), f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// statusSpellings returns the canonical status followed by every synonym
// that normalizes to it.
func statusSpellings(st model.MemberStatus) []string {
	out := []string{string(st)}
	for _, s := range []string{"activo", "activa", "vencido", "vencida", "expirado", "expirada",
		"canceled", "cancelado", "cancelada"} {
		if model.NormalizeMemberStatus(s) == st {
			out = append(out, s)
		}
	}
	return out
}

// Update applies the non-nil fields of u.  Membership columns are not
// reachable from here.
func (r *MemberRepo) Update(ctx context.Context, id uint64, u model.MemberUpdate) error {
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if u.Name != nil {
		add("name", strings.TrimSpace(*u.Name))
	}
	if u.Email != nil {
		add("email", strings.ToLower(strings.TrimSpace(*u.Email)))
	}
	if u.Phone != nil {
		add("phone", strings.TrimSpace(*u.Phone))
	}
	if u.TrainingGoal != nil {
		add("training_goal", model.MapTrainingGoal(*u.TrainingGoal))
	}
	if u.EmergencyContactName != nil {
		add("emergency_contact_name", *u.EmergencyContactName)
	}
	if u.EmergencyContactPhone != nil {
		add("emergency_contact_phone", *u.EmergencyContactPhone)
	}
	if u.MedicalNotes != nil {
		add("medical_notes", *u.MedicalNotes)
	}
	if u.AssignedSellerID != nil {
		add("assigned_seller_id", nullable(nonZero(*u.AssignedSellerID)))
	}
	if len(set) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	set = append(set, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return affected(res)
}

// SetMembershipTx copies the current membership onto the member row and
// clears any cancellation reason.
func (r *MemberRepo) SetMembershipTx(ctx context.Context, tx DBTX, userID uint64, s model.MembershipSnapshot) error {
	const q = `UPDATE users
		SET current_membership_id = ?, membership_type = ?, membership_status = ?,
		    membership_start_date = ?, membership_end_date = ?, cancellation_reason = '',
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, s.MembershipID, s.PlanName, s.Status, s.StartDate, s.EndDate, userID)
	if err != nil {
		return err
	}
	return affected(res)
}

// PatchMembershipTx follows a direct membership correction on the member
// row.  It only writes when the member still points at membershipID and
// reports whether a row was updated.
func (r *MemberRepo) PatchMembershipTx(ctx context.Context, tx DBTX, userID, membershipID uint64, status *model.MemberStatus, endDate *time.Time) (bool, error) {
	var (
		set  []string
		args []any
	)
	if status != nil {
		set = append(set, "membership_status = ?")
		args = append(args, *status)
	}
	if endDate != nil {
		set = append(set, "membership_end_date = ?")
		args = append(args, *endDate)
	}
	if len(set) == 0 {
		return false, nil
	}
	set = append(set, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, userID, membershipID)
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id = ? AND current_membership_id = ?", args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetStatusTx writes the member status and cancellation reason in one
// statement.
func (r *MemberRepo) SetStatusTx(ctx context.Context, tx DBTX, id uint64, status model.MemberStatus, reason string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET membership_status = ?, cancellation_reason = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, reason, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func nonZero(id uint64) *uint64 {
	if id == 0 {
		return nil
	}
	return &id
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/gymdesk/internal/model"
)

// MembershipRepo owns the memberships table.  Renewal history is the
// linked list formed by previous_membership_id.
type MembershipRepo struct {
	db *sql.DB
}

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

const membershipSelect = `SELECT m.id, m.user_id, m.membership_plan_id, COALESCE(p.name, ''), m.start_date, m.end_date,
	m.status, m.is_renewal, m.previous_membership_id, m.created_at, m.updated_at
	FROM memberships m
	LEFT JOIN membership_plans p ON p.id = m.membership_plan_id`

func scanMembership(s scanner, extra ...any) (*model.Membership, error) {
	var (
		m    model.Membership
		prev sql.NullInt64
	)
	dest := []any{&m.ID, &m.UserID, &m.MembershipPlanID, &m.PlanName, &m.StartDate, &m.EndDate,
		&m.Status, &m.IsRenewal, &prev, &m.CreatedAt, &m.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m.PreviousMembershipID = ptrUint64(prev)
	return &m, nil
}

// CreateTx inserts m inside tx and reads the row back so the caller gets
// the id, timestamps and plan name.
func (r *MembershipRepo) CreateTx(ctx context.Context, tx DBTX, m *model.Membership) error {
	const q = `INSERT INTO memberships (user_id, membership_plan_id, start_date, end_date, status, is_renewal, previous_membership_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, m.UserID, m.MembershipPlanID, m.StartDate, m.EndDate,
		m.Status, m.IsRenewal, nullable(m.PreviousMembershipID))
	if err != nil {
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

// GetByID fetches one membership or ErrNotFound.
func (r *MembershipRepo) GetByID(ctx context.Context, id uint64) (*model.Membership, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *MembershipRepo) GetByIDTx(ctx context.Context, tx DBTX, id uint64) (*model.Membership, error) {
	m, err := scanMembership(tx.QueryRowContext(ctx, membershipSelect+" WHERE m.id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ExpireTx marks a membership expired.  An already expired row is left
// as is; a missing row is ErrNotFound.
func (r *MembershipRepo) ExpireTx(ctx context.Context, tx DBTX, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE memberships SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		model.MembershipExpired, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// UpdateTx sets status and end date of a membership.
func (r *MembershipRepo) UpdateTx(ctx context.Context, tx DBTX, id uint64, status model.MembershipStatus, endDate time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE memberships SET status = ?, end_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, endDate, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// ListByUser returns a member's memberships, newest first.
func (r *MembershipRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Membership, error) {
	rows, err := r.db.QueryContext(ctx, membershipSelect+" WHERE m.user_id = ? ORDER BY m.start_date DESC, m.id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Expiring returns active memberships whose end date falls in
// [from, to], both inclusive, joined with the member's contact details.
func (r *MembershipRepo) Expiring(ctx context.Context, from, to time.Time) ([]model.ExpiringMembership, error) {
	const q = `SELECT m.id, m.user_id, m.membership_plan_id, COALESCE(p.name, ''), m.start_date, m.end_date,
		m.status, m.is_renewal, m.previous_membership_id, m.created_at, m.updated_at,
		u.name, u.email, u.phone
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN membership_plans p ON p.id = m.membership_plan_id
		WHERE m.status = ? AND m.end_date >= ? AND m.end_date <= ?
		ORDER BY m.end_date, m.id`
	rows, err := r.db.QueryContext(ctx, q, model.MembershipActive, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ExpiringMembership{}
	for rows.Next() {
		var e model.ExpiringMembership
		m, err := scanMembership(rows, &e.MemberName, &e.MemberEmail, &e.MemberPhone)
		if err != nil {
			return nil, err
		}
		e.Membership = *m
		out = append(out, e)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/gymdesk/internal/model"
)

// PaymentRepo appends to and reads the payments table.  There is no
// update or delete.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentSelect = `SELECT pa.id, pa.membership_id, pa.user_id, pa.amount, pa.payment_method, pa.payment_status,
	pa.payment_date, pa.is_renewal, pa.notes, COALESCE(p.name, ''), pa.created_at
	FROM payments pa
	LEFT JOIN memberships m ON m.id = pa.membership_id
	LEFT JOIN membership_plans p ON p.id = m.membership_plan_id`

func scanPayment(s scanner) (*model.Payment, error) {
	var p model.Payment
	err := s.Scan(&p.ID, &p.MembershipID, &p.UserID, &p.Amount, &p.PaymentMethod, &p.PaymentStatus,
		&p.PaymentDate, &p.IsRenewal, &p.Notes, &p.PlanName, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateTx inserts p inside tx and fills in its id and created_at.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx DBTX, p *model.Payment) error {
	const q = `INSERT INTO payments (membership_id, user_id, amount, payment_method, payment_status, payment_date, is_renewal, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.MembershipID, p.UserID, p.Amount, p.PaymentMethod,
		p.PaymentStatus, p.PaymentDate, p.IsRenewal, p.Notes)
	if err != nil {
		return err
	}
	id, err := lastID(res)
	if err != nil {
		return err
	}
	created, err := scanPayment(tx.QueryRowContext(ctx, paymentSelect+" WHERE pa.id = ?", id))
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// Create is CreateTx against the pool.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	return r.CreateTx(ctx, r.db, p)
}

// List returns payments matching f, newest first.
func (r *PaymentRepo) List(ctx context.Context, f model.PaymentFilter) ([]model.Payment, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "pa.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.MembershipID != 0 {
		where = append(where, "pa.membership_id = ?")
		args = append(args, f.MembershipID)
	}
	if f.From != nil {
		where = append(where, "pa.payment_date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "pa.payment_date <= ?")
		args = append(args, *f.To)
	}
	q := paymentSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY pa.payment_date DESC, pa.id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit, 100, 1000), f.Offset)
	return r.query(ctx, q, args...)
}

// CompletedBetween returns every completed payment with payment_date in
// [start, end], joined with the plan name of its membership.
func (r *PaymentRepo) CompletedBetween(ctx context.Context, start, end time.Time) ([]model.Payment, error) {
	q := paymentSelect + ` WHERE pa.payment_status = ? AND pa.payment_date >= ? AND pa.payment_date <= ?
		ORDER BY pa.payment_date, pa.id`
	return r.query(ctx, q, model.PaymentCompleted, start, end)
}

func (r *PaymentRepo) query(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

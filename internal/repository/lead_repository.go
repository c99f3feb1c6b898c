package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/gymdesk/internal/model"
)

// LeadRepo owns the leads table.
type LeadRepo struct {
	db *sql.DB
}

func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

const leadColumns = `id, name, email, phone, training_goal, status, lost_reason, notes, assigned_seller_id,
	converted_to_user, email_sent, prospect_id, utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	created_at, updated_at`

func scanLead(s scanner) (*model.Lead, error) {
	var (
		l                model.Lead
		status           string
		seller, prospect sql.NullInt64
	)
	err := s.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.TrainingGoal, &status, &l.LostReason, &l.Notes, &seller,
		&l.ConvertedToUser, &l.EmailSent, &prospect, &l.UTMSource, &l.UTMMedium, &l.UTMCampaign, &l.UTMTerm, &l.UTMContent,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if st, ok := model.ParseLeadStatus(status); ok {
		l.Status = st
	} else {
		l.Status = model.LeadStatus(status)
	}
	l.AssignedSellerID = ptrUint64(seller)
	l.ProspectID = ptrUint64(prospect)
	return &l, nil
}

// Create is CreateTx against the pool.
func (r *LeadRepo) Create(ctx context.Context, l *model.Lead) error {
	return r.CreateTx(ctx, r.db, l)
}

// CreateTx inserts l inside tx and reads the row back.
func (r *LeadRepo) CreateTx(ctx context.Context, tx DBTX, l *model.Lead) error {
	if l.Status == "" {
		l.Status = model.LeadNew
	}
	const q = `INSERT INTO leads (name, email, phone, training_goal, status, notes, assigned_seller_id, prospect_id,
		utm_source, utm_medium, utm_campaign, utm_term, utm_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.Name, strings.ToLower(strings.TrimSpace(l.Email)), l.Phone, l.TrainingGoal,
		l.Status, l.Notes, nullable(l.AssignedSellerID), nullable(l.ProspectID),
		l.UTMSource, l.UTMMedium, l.UTMCampaign, l.UTMTerm, l.UTMContent)
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
	*l = *created
	return nil
}

func (r *LeadRepo) GetByID(ctx context.Context, id uint64) (*model.Lead, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *LeadRepo) GetByIDTx(ctx context.Context, tx DBTX, id uint64) (*model.Lead, error) {
	l, err := scanLead(tx.QueryRowContext(ctx, "SELECT "+leadColumns+" FROM leads WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

// List returns leads matching f, newest first.
func (r *LeadRepo) List(ctx context.Context, f model.LeadFilter) ([]model.Lead, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
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
	q := "SELECT " + leadColumns + " FROM leads"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit, 100, 1000), f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of u.
func (r *LeadRepo) Update(ctx context.Context, id uint64, u model.LeadUpdate) error {
	var (
		set  []string
		args []any
	)
	if u.Name != nil {
		set, args = append(set, "name = ?"), append(args, strings.TrimSpace(*u.Name))
	}
	if u.Email != nil {
		set, args = append(set, "email = ?"), append(args, strings.ToLower(strings.TrimSpace(*u.Email)))
	}
	if u.Phone != nil {
		set, args = append(set, "phone = ?"), append(args, strings.TrimSpace(*u.Phone))
	}
	if u.TrainingGoal != nil {
		set, args = append(set, "training_goal = ?"), append(args, model.MapTrainingGoal(*u.TrainingGoal))
	}
	if u.Notes != nil {
		set, args = append(set, "notes = ?"), append(args, *u.Notes)
	}
	if len(set) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE leads SET "+strings.Join(set, ", ")+", updated_at = CURRENT_TIMESTAMP WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return affected(res)
}

// SetStatusTx writes status and lost_reason in one statement.
func (r *LeadRepo) SetStatusTx(ctx context.Context, tx DBTX, id uint64, status model.LeadStatus, lostReason string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE leads SET status = ?, lost_reason = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, lostReason, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// AssignSeller sets or clears (nil) the assigned seller.
func (r *LeadRepo) AssignSeller(ctx context.Context, id uint64, sellerID *uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE leads SET assigned_seller_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		nullable(sellerID), id)
	if err != nil {
		return err
	}
	return affected(res)
}

// MarkConvertedTx flips the lead to converted.  It only matches a lead
// that has not been converted yet; otherwise ErrConflict.
func (r *LeadRepo) MarkConvertedTx(ctx context.Context, tx DBTX, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE leads SET status = ?, converted_to_user = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND converted_to_user = 0`,
		model.LeadConverted, id)
	if err != nil {
		return err
	}
	if err := affected(res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// CountByStatus returns the number of leads per status.
func (r *LeadRepo) CountByStatus(ctx context.Context) (map[model.LeadStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM leads GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.LeadStatus]int, len(model.LeadStatuses))
	for _, st := range model.LeadStatuses {
		out[st] = 0
	}
	for rows.Next() {
		var (
			raw string
			n   int
		)
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		st, ok := model.ParseLeadStatus(raw)
		if !ok {
			st = model.LeadStatus(raw)
		}
		out[st] += n
	}
	return out, rows.Err()
}

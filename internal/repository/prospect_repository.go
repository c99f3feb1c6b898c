package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/gymdesk/internal/model"
)

// ProspectRepo owns the prospects table filled by the landing page.
type ProspectRepo struct {
	db *sql.DB
}

func NewProspectRepo(db *sql.DB) *ProspectRepo { return &ProspectRepo{db: db} }

const prospectColumns = `id, name, email, phone, training_goal, converted_to_lead, lead_id, captured_at,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content, updated_at`

func scanProspect(s scanner) (*model.Prospect, error) {
	var (
		p    model.Prospect
		lead sql.NullInt64
	)
	err := s.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.TrainingGoal, &p.ConvertedToLead, &lead, &p.CapturedAt,
		&p.UTMSource, &p.UTMMedium, &p.UTMCampaign, &p.UTMTerm, &p.UTMContent, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.LeadID = ptrUint64(lead)
	return &p, nil
}

// Create inserts p and reads it back.
func (r *ProspectRepo) Create(ctx context.Context, p *model.Prospect) error {
	const q = `INSERT INTO prospects (name, email, phone, training_goal, utm_source, utm_medium, utm_campaign, utm_term, utm_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(p.Name), strings.ToLower(strings.TrimSpace(p.Email)),
		strings.TrimSpace(p.Phone), p.TrainingGoal, p.UTMSource, p.UTMMedium, p.UTMCampaign, p.UTMTerm, p.UTMContent)
	if err != nil {
		return err
	}
	id, err := lastID(res)
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

func (r *ProspectRepo) GetByID(ctx context.Context, id uint64) (*model.Prospect, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *ProspectRepo) GetByIDTx(ctx context.Context, tx DBTX, id uint64) (*model.Prospect, error) {
	p, err := scanProspect(tx.QueryRowContext(ctx, "SELECT "+prospectColumns+" FROM prospects WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// List returns prospects matching f, most recent capture first.
func (r *ProspectRepo) List(ctx context.Context, f model.ProspectFilter) ([]model.Prospect, error) {
	var (
		where []string
		args  []any
	)
	if f.Converted != nil {
		where = append(where, "converted_to_lead = ?")
		args = append(args, *f.Converted)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, "(name LIKE ? OR email LIKE ? OR phone LIKE ?)")
		args = append(args, like, like, like)
	}
	q := "SELECT " + prospectColumns + " FROM prospects"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY captured_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit, 100, 1000), f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Prospect{}
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of u.
func (r *ProspectRepo) Update(ctx context.Context, id uint64, u model.ProspectUpdate) error {
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
		set, args = append(set, "training_goal = ?"), append(args, *u.TrainingGoal)
	}
	if len(set) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE prospects SET "+strings.Join(set, ", ")+", updated_at = CURRENT_TIMESTAMP WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return affected(res)
}

// MarkConvertedTx records the lead a prospect became.  A prospect that
// is already converted does not match and yields ErrConflict.
func (r *ProspectRepo) MarkConvertedTx(ctx context.Context, tx DBTX, id, leadID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE prospects SET converted_to_lead = 1, lead_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND converted_to_lead = 0`,
		leadID, id)
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

// CountUnconverted returns how many prospects still wait to be qualified.
func (r *ProspectRepo) CountUnconverted(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prospects WHERE converted_to_lead = 0").Scan(&n)
	return n, err
}

package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/gymdesk/internal/model"
)

// SellerRepo owns the sellers table.
type SellerRepo struct{ db *sql.DB }

func NewSellerRepo(db *sql.DB) *SellerRepo { return &SellerRepo{db: db} }

const sellerColumns = "id, name, email, phone, is_active, created_at, updated_at"

func scanSeller(s scanner) (*model.Seller, error) {
	var v model.Seller
	if err := s.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.IsActive, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts s and reads it back.
func (r *SellerRepo) Create(ctx context.Context, s *model.Seller) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO sellers (name, email, phone, is_active) VALUES (?, ?, ?, 1)",
		strings.TrimSpace(s.Name), strings.ToLower(strings.TrimSpace(s.Email)), strings.TrimSpace(s.Phone))
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
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

func (r *SellerRepo) GetByID(ctx context.Context, id uint64) (*model.Seller, error) {
	s, err := scanSeller(r.db.QueryRowContext(ctx, "SELECT "+sellerColumns+" FROM sellers WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// List returns sellers ordered by name.
func (r *SellerRepo) List(ctx context.Context, includeInactive bool) ([]model.Seller, error) {
	q := "SELECT " + sellerColumns + " FROM sellers"
	if !includeInactive {
		q += " WHERE is_active = 1"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Seller{}
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of u.  Deactivation is IsActive=false.
func (r *SellerRepo) Update(ctx context.Context, id uint64, u model.SellerUpdate) error {
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
	if u.IsActive != nil {
		set, args = append(set, "is_active = ?"), append(args, *u.IsActive)
	}
	if len(set) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE sellers SET "+strings.Join(set, ", ")+", updated_at = CURRENT_TIMESTAMP WHERE id = ?", args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return affected(res)
}

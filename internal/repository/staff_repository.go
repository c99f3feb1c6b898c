package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// StaffRepo holds the back-office accounts.
type StaffRepo struct{ DB *sql.DB }

func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{DB: db} }

const staffColumns = "id, email, name, password_hash, role, is_active, created_at, updated_at"

func scanStaff(s scanner) (model.Staff, error) {
	var u model.Staff
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create hashes the password and inserts the account, returning its ID.
func (r *StaffRepo) Create(ctx context.Context, n model.NewStaff, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(n.Email))
	hash, err := utils.HashPassword(n.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO staff (email, name, password_hash, role) VALUES (?,?,?,?)",
		email, strings.TrimSpace(n.Name), hash, n.Role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return lastID(res)
}

// GetByEmail fetches an account by normalized email.
func (r *StaffRepo) GetByEmail(ctx context.Context, email string) (model.Staff, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanStaff(r.DB.QueryRowContext(ctx,
		"SELECT "+staffColumns+" FROM staff WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetByID fetches an account by id.
func (r *StaffRepo) GetByID(ctx context.Context, id uint64) (model.Staff, error) {
	u, err := scanStaff(r.DB.QueryRowContext(ctx,
		"SELECT "+staffColumns+" FROM staff WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// List returns every account ordered by email.
func (r *StaffRepo) List(ctx context.Context) ([]model.Staff, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+staffColumns+" FROM staff ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Staff{}
	for rows.Next() {
		u, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Delete removes an account; its refresh tokens go with it (FK cascade).
func (r *StaffRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM staff WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

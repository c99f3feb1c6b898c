package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores staff refresh tokens by their SHA-256 hash.  The raw
// token only ever exists on the client.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) StoreRefresh(ctx context.Context, staffID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (staff_id, token_hash, expires_at) VALUES (?, ?, ?)",
		staffID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owner of a live token.  Revoked, expired
// and unknown tokens are all ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var staffID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT staff_id FROM refresh_tokens
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?
		 LIMIT 1`,
		tokenHash, time.Now().UTC()).Scan(&staffID)
	if err != nil {
		return 0, notFound(err)
	}
	return staffID, nil
}

// RevokeByHash revokes one live token.  ErrNotFound means it was already
// revoked, which is how a second concurrent rotation is detected.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return err
	}
	return affected(res)
}

// RevokeAllForStaff ends every session of an account (logout everywhere,
// account deletion).
func (r *TokenRepo) RevokeAllForStaff(ctx context.Context, staffID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE staff_id = ? AND revoked_at IS NULL",
		staffID)
	return err
}

// PurgeExpired deletes tokens that expired before cutoff.
func (r *TokenRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

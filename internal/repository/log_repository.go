package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/gymdesk/internal/model"
)

// Log query page sizes.
const (
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

// LogRepo appends to and reads the logs table.  Rows are never updated
// or deleted.
type LogRepo struct{ db *sql.DB }

func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{db: db} }

// Insert appends e with the given creation time and returns the row id.
// A nil performer is stored as the system.
func (r *LogRepo) Insert(ctx context.Context, e model.LogEntry, at time.Time) (uint64, error) {
	actor := model.SystemActor()
	if e.PerformedBy != nil {
		actor = *e.PerformedBy
	}
	changes, err := marshalJSON(e.Changes)
	if err != nil {
		return 0, err
	}
	meta, err := marshalJSON(e.Metadata)
	if err != nil {
		return 0, err
	}
	const q = `INSERT INTO logs (action_type, description, performed_by_id, performed_by_type, performed_by_name,
		entity_type, entity_id, entity_name, related_user_id, related_membership_id, changes, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.ActionType, e.Description, nullable(actor.ID), actor.Type, actor.Name,
		e.EntityType, e.EntityID, e.EntityName, nullable(e.RelatedUserID), nullable(e.RelatedMembershipID),
		changes, meta, at.UTC())
	if err != nil {
		return 0, err
	}
	return lastID(res)
}

// List returns log rows matching f, newest first.
func (r *LogRepo) List(ctx context.Context, f model.LogFilter) ([]model.LogRow, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != nil {
		where, args = append(where, "related_user_id = ?"), append(args, *f.UserID)
	}
	if f.MembershipID != nil {
		where, args = append(where, "related_membership_id = ?"), append(args, *f.MembershipID)
	}
	if f.PerformerID != nil {
		where, args = append(where, "performed_by_id = ?"), append(args, *f.PerformerID)
	}
	if f.ActionType != "" {
		where, args = append(where, "action_type = ?"), append(args, f.ActionType)
	}
	q := `SELECT id, action_type, description, performed_by_id, performed_by_type, performed_by_name,
		entity_type, entity_id, entity_name, related_user_id, related_membership_id, changes, metadata, created_at
		FROM logs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(f.Limit, DefaultLogLimit, MaxLogLimit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LogRow{}
	for rows.Next() {
		var (
			row                     model.LogRow
			actor                   model.Actor
			performer, user, member sql.NullInt64
			changes, meta           []byte
		)
		if err := rows.Scan(&row.ID, &row.ActionType, &row.Description, &performer, &actor.Type, &actor.Name,
			&row.EntityType, &row.EntityID, &row.EntityName, &user, &member, &changes, &meta, &row.CreatedAt); err != nil {
			return nil, err
		}
		actor.ID = ptrUint64(performer)
		row.PerformedBy = &actor
		row.RelatedUserID = ptrUint64(user)
		row.RelatedMembershipID = ptrUint64(member)
		if row.Changes, err = unmarshalJSON(changes); err != nil {
			return nil, err
		}
		if row.Metadata, err = unmarshalJSON(meta); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func marshalJSON(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalJSON(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

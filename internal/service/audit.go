package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// auditTimeout bounds a single sink write.  The write is detached from the
// request context so a client hanging up does not drop the entry.
const auditTimeout = 3 * time.Second

// Sink persists one audit entry.
type Sink interface {
	Write(ctx context.Context, e model.LogEntry, at time.Time) error
}

// DBSink writes entries straight to the logs table.
type DBSink struct {
	Logs LogStore
}

func (s DBSink) Write(ctx context.Context, e model.LogEntry, at time.Time) error {
	_, err := s.Logs.Insert(ctx, e, at)
	return err
}

// Publisher hands an entry to the message broker.  queue.AuditPublisher
// implements it.
type Publisher interface {
	PublishAudit(ctx context.Context, e model.LogEntry, at time.Time) error
}

// QueueSink publishes entries for the audit consumer and writes them
// through Fallback when the broker is unreachable.
type QueueSink struct {
	Pub      Publisher
	Fallback Sink
	Log      *log.Logger
}

func (s QueueSink) Write(ctx context.Context, e model.LogEntry, at time.Time) error {
	err := s.Pub.PublishAudit(ctx, e, at)
	if err == nil || s.Fallback == nil {
		return err
	}
	if s.Log != nil {
		s.Log.Warnf("audit: publish failed, writing %s directly: %v", e.ActionType, err)
	}
	return s.Fallback.Write(ctx, e, at)
}

// Recorder is the write side of the audit log.  Recording never fails
// the caller; sink errors are logged and swallowed.
type Recorder struct {
	sink Sink
	log  *log.Logger
	now  clock
}

func NewRecorder(sink Sink, lg *log.Logger) *Recorder {
	if lg == nil {
		lg = log.New("audit")
	}
	return &Recorder{sink: sink, log: lg, now: systemClock}
}

// Record appends e.  A nil performer is recorded as the system.
func (r *Recorder) Record(ctx context.Context, e model.LogEntry) {
	if r == nil || r.sink == nil {
		return
	}
	if e.PerformedBy == nil {
		sys := model.SystemActor()
		e.PerformedBy = &sys
	}
	if !e.ActionType.Valid() {
		r.log.Warnf("audit: unknown action type %q on %s %d", e.ActionType, e.EntityType, e.EntityID)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := r.sink.Write(ctx, e, r.now()); err != nil {
		r.log.Warnf("audit: %s on %s %d not recorded: %v", e.ActionType, e.EntityType, e.EntityID, err)
	}
}

// AuditLog is the read side of the audit log.  Every query returns rows
// newest first, at most limit of them (default 50, capped at 500).
type AuditLog struct {
	logs LogStore
}

func NewAuditLog(logs LogStore) *AuditLog { return &AuditLog{logs: logs} }

func (a *AuditLog) ByUser(ctx context.Context, userID uint64, limit int) ([]model.LogRow, error) {
	return a.list(ctx, model.LogFilter{UserID: &userID, Limit: limit})
}

func (a *AuditLog) ByMembership(ctx context.Context, membershipID uint64, limit int) ([]model.LogRow, error) {
	return a.list(ctx, model.LogFilter{MembershipID: &membershipID, Limit: limit})
}

func (a *AuditLog) ByPerformer(ctx context.Context, staffID uint64, limit int) ([]model.LogRow, error) {
	return a.list(ctx, model.LogFilter{PerformerID: &staffID, Limit: limit})
}

func (a *AuditLog) ByActionType(ctx context.Context, action model.ActionType, limit int) ([]model.LogRow, error) {
	if !action.Valid() {
		return nil, utils.NewValidationError("actionType", "unknown action type")
	}
	return a.list(ctx, model.LogFilter{ActionType: action, Limit: limit})
}

func (a *AuditLog) Recent(ctx context.Context, limit int) ([]model.LogRow, error) {
	return a.list(ctx, model.LogFilter{Limit: limit})
}

func (a *AuditLog) list(ctx context.Context, f model.LogFilter) ([]model.LogRow, error) {
	rows, err := a.logs.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "reading audit log")
	}
	return rows, nil
}

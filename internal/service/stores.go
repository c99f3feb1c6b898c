package service

import (
	"context"
	"time"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/repository"
)

// The interfaces below are the slices of the repositories each workflow
// needs.  The *Repo types in internal/repository satisfy them.

// Transactor runs fn inside one database transaction.  fn's error, or a
// panic, rolls everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx repository.DBTX) error) error
}

type PlanStore interface {
	List(ctx context.Context, includeInactive bool) ([]model.MembershipPlan, error)
	GetByID(ctx context.Context, id uint64) (*model.MembershipPlan, error)
	GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.MembershipPlan, error)
	GetByNameTx(ctx context.Context, tx repository.DBTX, name string) (*model.MembershipPlan, error)
	Create(ctx context.Context, p *model.MembershipPlan) error
	Update(ctx context.Context, p *model.MembershipPlan) error
}

type MembershipStore interface {
	CreateTx(ctx context.Context, tx repository.DBTX, m *model.Membership) error
	GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.Membership, error)
	ExpireTx(ctx context.Context, tx repository.DBTX, id uint64) error
	UpdateTx(ctx context.Context, tx repository.DBTX, id uint64, status model.MembershipStatus, endDate time.Time) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Membership, error)
	Expiring(ctx context.Context, from, to time.Time) ([]model.ExpiringMembership, error)
}

type PaymentStore interface {
	CreateTx(ctx context.Context, tx repository.DBTX, p *model.Payment) error
	List(ctx context.Context, f model.PaymentFilter) ([]model.Payment, error)
	CompletedBetween(ctx context.Context, start, end time.Time) ([]model.Payment, error)
}

type MemberStore interface {
	CreateTx(ctx context.Context, tx repository.DBTX, m *model.Member) error
	GetByID(ctx context.Context, id uint64) (*model.Member, error)
	GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.Member, error)
	SetMembershipTx(ctx context.Context, tx repository.DBTX, userID uint64, s model.MembershipSnapshot) error
	PatchMembershipTx(ctx context.Context, tx repository.DBTX, userID, membershipID uint64, status *model.MemberStatus, endDate *time.Time) (bool, error)
	SetStatusTx(ctx context.Context, tx repository.DBTX, id uint64, status model.MemberStatus, reason string) error
}

type LeadStore interface {
	CreateTx(ctx context.Context, tx repository.DBTX, l *model.Lead) error
	GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.Lead, error)
	SetStatusTx(ctx context.Context, tx repository.DBTX, id uint64, status model.LeadStatus, lostReason string) error
	MarkConvertedTx(ctx context.Context, tx repository.DBTX, id uint64) error
	CountByStatus(ctx context.Context) (map[model.LeadStatus]int, error)
}

type ProspectStore interface {
	GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.Prospect, error)
	MarkConvertedTx(ctx context.Context, tx repository.DBTX, id, leadID uint64) error
	CountUnconverted(ctx context.Context) (int, error)
}

type LogStore interface {
	Insert(ctx context.Context, e model.LogEntry, at time.Time) (uint64, error)
	List(ctx context.Context, f model.LogFilter) ([]model.LogRow, error)
}

// clock is overridden in tests.
type clock func() time.Time

func (c clock) today() time.Time {
	return model.NewDate(c()).Time
}

func systemClock() time.Time { return time.Now().UTC() }

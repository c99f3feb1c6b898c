package handler

import (
	"context"
	"time"

	"github.com/iliyamo/gymdesk/internal/model"
)

// The handlers depend on these narrow views of the services and
// repositories; cmd/server passes the concrete types.

type PlanService interface {
	ListPlans(ctx context.Context, includeInactive bool) ([]model.MembershipPlan, error)
	GetPlan(ctx context.Context, id uint64) (*model.MembershipPlan, error)
	CreatePlan(ctx context.Context, actor *model.Actor, in model.NewPlan) (*model.MembershipPlan, error)
	UpdatePlan(ctx context.Context, actor *model.Actor, id uint64, in model.PlanUpdate) (*model.MembershipPlan, error)
}

type LedgerService interface {
	CreateMembership(ctx context.Context, actor *model.Actor, in model.NewMembership) (*model.MembershipReceipt, error)
	RenewMembership(ctx context.Context, actor *model.Actor, userID uint64, in model.Renewal) (*model.MembershipReceipt, error)
	UpdateMembership(ctx context.Context, actor *model.Actor, id uint64, patch model.MembershipPatch) (*model.Membership, error)
	GetExpiringMemberships(ctx context.Context, days int) ([]model.ExpiringMembership, error)
	MembershipHistory(ctx context.Context, userID uint64) ([]model.Membership, error)
	EnrollMember(ctx context.Context, actor *model.Actor, in model.NewMember) (*model.Enrollment, error)
}

type PaymentService interface {
	RecordPayment(ctx context.Context, actor *model.Actor, in model.NewPayment) (*model.Payment, error)
	ListPayments(ctx context.Context, f model.PaymentFilter) ([]model.Payment, error)
	RevenueStats(ctx context.Context, from, to model.Date) (*model.RevenueStats, error)
	MonthToDate() (model.Date, model.Date)
}

type ConversionService interface {
	ProspectToLead(ctx context.Context, actor *model.Actor, prospectID uint64, in model.LeadFromProspect) (*model.Lead, error)
	LeadToMember(ctx context.Context, actor *model.Actor, leadID uint64, in model.MemberFromLead) (*model.Enrollment, error)
	ChangeLeadStatus(ctx context.Context, actor *model.Actor, leadID uint64, in model.StatusChange) (*model.Lead, error)
	ChangeMemberStatus(ctx context.Context, actor *model.Actor, userID uint64, in model.StatusChange) (*model.Member, error)
}

type AuditQueries interface {
	ByUser(ctx context.Context, userID uint64, limit int) ([]model.LogRow, error)
	ByMembership(ctx context.Context, membershipID uint64, limit int) ([]model.LogRow, error)
	ByPerformer(ctx context.Context, staffID uint64, limit int) ([]model.LogRow, error)
	ByActionType(ctx context.Context, action model.ActionType, limit int) ([]model.LogRow, error)
	Recent(ctx context.Context, limit int) ([]model.LogRow, error)
}

type DashboardService interface {
	Snapshot(ctx context.Context) *model.DashboardSnapshot
}

// AuditRecorder is the record-after-write hook used by the plain CRUD
// handlers that do not go through a workflow.
type AuditRecorder interface {
	Record(ctx context.Context, e model.LogEntry)
}

type ProspectStore interface {
	Create(ctx context.Context, p *model.Prospect) error
	GetByID(ctx context.Context, id uint64) (*model.Prospect, error)
	List(ctx context.Context, f model.ProspectFilter) ([]model.Prospect, error)
	Update(ctx context.Context, id uint64, u model.ProspectUpdate) error
}

type LeadStore interface {
	Create(ctx context.Context, l *model.Lead) error
	GetByID(ctx context.Context, id uint64) (*model.Lead, error)
	List(ctx context.Context, f model.LeadFilter) ([]model.Lead, error)
	Update(ctx context.Context, id uint64, u model.LeadUpdate) error
	AssignSeller(ctx context.Context, id uint64, sellerID *uint64) error
}

type MemberStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Member, error)
	List(ctx context.Context, f model.MemberFilter) ([]model.Member, error)
	Update(ctx context.Context, id uint64, u model.MemberUpdate) error
}

type SellerStore interface {
	Create(ctx context.Context, s *model.Seller) error
	GetByID(ctx context.Context, id uint64) (*model.Seller, error)
	List(ctx context.Context, includeInactive bool) ([]model.Seller, error)
	Update(ctx context.Context, id uint64, u model.SellerUpdate) error
}

type StaffStore interface {
	Create(ctx context.Context, n model.NewStaff, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Staff, error)
	GetByID(ctx context.Context, id uint64) (model.Staff, error)
	List(ctx context.Context) ([]model.Staff, error)
	Delete(ctx context.Context, id uint64) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, staffID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForStaff(ctx context.Context, staffID uint64) error
}

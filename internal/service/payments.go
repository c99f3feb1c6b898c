package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/repository"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// unknownPlan keys revenue from payments whose membership has no plan.
const unknownPlan = "unknown"

// Payments appends payments to existing memberships and reports revenue.
type Payments struct {
	tx          Transactor
	payments    PaymentStore
	memberships MembershipStore
	audit       *Recorder
	now         clock
}

func NewPayments(tx Transactor, payments PaymentStore, memberships MembershipStore, audit *Recorder) *Payments {
	return &Payments{tx: tx, payments: payments, memberships: memberships, audit: audit, now: systemClock}
}

// RecordPayment appends a payment to a membership.  The member is taken
// from the membership; a conflicting userId is rejected.
func (s *Payments) RecordPayment(ctx context.Context, actor *model.Actor, in model.NewPayment) (*model.Payment, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if in.MembershipID == 0 {
		return nil, utils.NewValidationError("membershipId", "membershipId is required")
	}
	if in.Amount == nil {
		return nil, utils.NewValidationError("amount", "amount is required")
	}
	if err := validatePayment(&in); err != nil {
		return nil, err
	}

	var p *model.Payment
	err := s.tx.InTx(ctx, func(tx repository.DBTX) error {
		m, err := s.memberships.GetByIDTx(ctx, tx, in.MembershipID)
		if err != nil {
			return membershipErr(err, in.MembershipID)
		}
		if in.UserID != 0 && in.UserID != m.UserID {
			return utils.NewValidationError("userId", "membership belongs to another member")
		}
		p = newPaymentRow(&in, nil, s.now())
		p.UserID = m.UserID
		if err := s.payments.CreateTx(ctx, tx, p); err != nil {
			return errors.Wrap(err, "inserting payment")
		}
		if p.PlanName == "" {
			p.PlanName = m.PlanName
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordPayment(ctx, s.audit, actor, p, "")
	return p, nil
}

func (s *Payments) ListPayments(ctx context.Context, f model.PaymentFilter) ([]model.Payment, error) {
	ps, err := s.payments.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "listing payments")
	}
	return ps, nil
}

// RevenueStats aggregates completed payments dated between the start of
// from and the end of to.
func (s *Payments) RevenueStats(ctx context.Context, from, to model.Date) (*model.RevenueStats, error) {
	if to.Before(from.Time) {
		return nil, invalidRange()
	}
	end := to.AddDate(0, 0, 1).Add(-time.Second)
	ps, err := s.payments.CompletedBetween(ctx, from.Time, end)
	if err != nil {
		return nil, errors.Wrap(err, "loading payments")
	}
	stats := AggregateRevenue(ps)
	stats.StartDate, stats.EndDate = from.Time, to.Time
	return stats, nil
}

// MonthToDate is the range used by the dashboard revenue card.
func (s *Payments) MonthToDate() (model.Date, model.Date) {
	today := s.now.today()
	return model.NewDate(today.AddDate(0, 0, 1-today.Day())), model.NewDate(today)
}

// AggregateRevenue sums completed payments.  Renewals and first payments
// are split by IsRenewal; every payment also counts towards its plan.
func AggregateRevenue(ps []model.Payment) *model.RevenueStats {
	st := &model.RevenueStats{
		TotalRevenue:        decimal.Zero,
		NewCustomersRevenue: decimal.Zero,
		RenewalsRevenue:     decimal.Zero,
		ByMembershipType:    map[string]*model.TypeRevenue{},
	}
	for _, p := range ps {
		if p.PaymentStatus != model.PaymentCompleted {
			continue
		}
		st.TotalRevenue = st.TotalRevenue.Add(p.Amount)
		st.PaymentCount++
		if p.IsRenewal {
			st.RenewalsRevenue = st.RenewalsRevenue.Add(p.Amount)
			st.RenewalsCount++
		} else {
			st.NewCustomersRevenue = st.NewCustomersRevenue.Add(p.Amount)
			st.NewCustomersCount++
		}
		key := p.PlanName
		if key == "" {
			key = unknownPlan
		}
		t, ok := st.ByMembershipType[key]
		if !ok {
			t = &model.TypeRevenue{Revenue: decimal.Zero}
			st.ByMembershipType[key] = t
		}
		t.Revenue = t.Revenue.Add(p.Amount)
		t.Count++
	}
	return st
}

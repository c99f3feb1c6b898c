package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/repository"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// Ledger owns memberships.  Every write runs in one transaction that
// covers the membership row, its payment and the copy of the current
// membership kept on the member; audit entries follow the commit.
type Ledger struct {
	tx          Transactor
	catalog     *Catalog
	memberships MembershipStore
	payments    PaymentStore
	members     MemberStore
	audit       *Recorder
	log         *log.Logger
	now         clock
}

func NewLedger(tx Transactor, catalog *Catalog, memberships MembershipStore, payments PaymentStore,
	members MemberStore, audit *Recorder, lg *log.Logger) *Ledger {
	return &Ledger{
		tx:          tx,
		catalog:     catalog,
		memberships: memberships,
		payments:    payments,
		members:     members,
		audit:       audit,
		log:         lg,
		now:         systemClock,
	}
}

// CreateMembership starts a membership for an existing member, records
// the optional payment and points the member at the new membership.
func (l *Ledger) CreateMembership(ctx context.Context, actor *model.Actor, in model.NewMembership) (*model.MembershipReceipt, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if err := validatePayment(in.Payment); err != nil {
		return nil, err
	}

	var (
		member  *model.Member
		receipt *model.MembershipReceipt
	)
	err := l.tx.InTx(ctx, func(tx repository.DBTX) error {
		var err error
		if member, err = l.members.GetByIDTx(ctx, tx, in.UserID); err != nil {
			return memberErr(err, in.UserID)
		}
		plan, err := l.catalog.ResolvePlan(ctx, tx, in.Plan())
		if err != nil {
			return err
		}
		receipt, err = l.createTx(ctx, tx, in, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.recordCreated(ctx, actor, model.ActionMembershipCreated, member.Name, receipt, nil)
	return receipt, nil
}

// RenewMembership expires the member's current membership, when one is
// named, and creates its successor in the same transaction.  The named
// membership must belong to userID.
func (l *Ledger) RenewMembership(ctx context.Context, actor *model.Actor, userID uint64, in model.Renewal) (*model.MembershipReceipt, error) {
	var prevID *uint64
	if !in.CurrentMembershipID.IsNull() {
		id, err := in.CurrentMembershipID.Uint64()
		if err != nil {
			return nil, utils.NewValidationError("currentMembershipId", "must be a membership id")
		}
		prevID = &id
	}
	if err := validatePayment(in.Payment); err != nil {
		return nil, err
	}
	nm := model.NewMembership{
		UserID:               userID,
		MembershipTerms:      in.MembershipTerms,
		Payment:              in.Payment,
		IsRenewal:            true,
		PreviousMembershipID: prevID,
	}

	var (
		member  *model.Member
		prev    *model.Membership
		receipt *model.MembershipReceipt
	)
	err := l.tx.InTx(ctx, func(tx repository.DBTX) error {
		var err error
		if member, err = l.members.GetByIDTx(ctx, tx, userID); err != nil {
			return memberErr(err, userID)
		}
		if prevID != nil {
			prev, err = l.memberships.GetByIDTx(ctx, tx, *prevID)
			if err != nil {
				return membershipErr(err, *prevID)
			}
			if prev.UserID != userID {
				return errors.Wrapf(repository.ErrNotFound, "membership %d of member %d", *prevID, userID)
			}
			if err := l.memberships.ExpireTx(ctx, tx, prev.ID); err != nil {
				return errors.Wrapf(err, "expiring membership %d", prev.ID)
			}
			prev.Status = model.MembershipExpired
		}
		var keep uint64
		if prev != nil {
			keep = prev.MembershipPlanID
		}
		plan, err := l.catalog.resolvePlan(ctx, tx, nm.Plan(), keep)
		if err != nil {
			return err
		}
		receipt, err = l.createTx(ctx, tx, nm, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.recordCreated(ctx, actor, model.ActionMembershipRenewed, member.Name, receipt, prev)
	return receipt, nil
}

// UpdateMembership corrects the status and/or end date of a membership.
// With UpdateUser set, the member row follows, but only while it still
// points at this membership.
func (l *Ledger) UpdateMembership(ctx context.Context, actor *model.Actor, id uint64, patch model.MembershipPatch) (*model.Membership, error) {
	if patch.Status == nil && (patch.EndDate == nil || patch.EndDate.IsZero()) {
		return nil, &utils.ValidationError{Err: ErrNothingToUpdate}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, utils.NewValidationError("status", "unknown membership status")
	}

	var old, updated *model.Membership
	err := l.tx.InTx(ctx, func(tx repository.DBTX) error {
		var err error
		if old, err = l.memberships.GetByIDTx(ctx, tx, id); err != nil {
			return membershipErr(err, id)
		}
		status, end := old.Status, old.EndDate
		if patch.Status != nil {
			status = *patch.Status
		}
		if patch.EndDate != nil && !patch.EndDate.IsZero() {
			end = patch.EndDate.Time
		}
		if end.Before(old.StartDate) {
			return invalidRange()
		}
		if err := l.memberships.UpdateTx(ctx, tx, id, status, end); err != nil {
			return errors.Wrapf(err, "updating membership %d", id)
		}
		if patch.UpdateUser {
			var st *model.MemberStatus
			if patch.Status != nil {
				ms := memberStatusFor(status)
				st = &ms
			}
			var endp *time.Time
			if patch.EndDate != nil && !patch.EndDate.IsZero() {
				endp = &end
			}
			ok, err := l.members.PatchMembershipTx(ctx, tx, old.UserID, id, st, endp)
			if err != nil {
				return errors.Wrapf(err, "updating member %d", old.UserID)
			}
			if !ok {
				l.log.Warnf("membership %d updated but member %d no longer points at it", id, old.UserID)
			}
		}
		updated, err = l.memberships.GetByIDTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.audit.Record(ctx, model.LogEntry{
		ActionType:          model.ActionMembershipUpdated,
		Description:         fmt.Sprintf("Membership %d updated", id),
		PerformedBy:         actor,
		EntityType:          model.EntityMembership,
		EntityID:            id,
		EntityName:          updated.PlanName,
		RelatedUserID:       &updated.UserID,
		RelatedMembershipID: &updated.ID,
		Changes:             model.Snapshot(membershipFields(old), membershipFields(updated)),
		Metadata:            map[string]any{"updateUser": patch.UpdateUser},
	})
	return updated, nil
}

// GetExpiringMemberships returns active memberships whose end date falls
// between today and today+days, both inclusive, soonest first.
func (l *Ledger) GetExpiringMemberships(ctx context.Context, days int) ([]model.ExpiringMembership, error) {
	if days < 0 {
		return nil, utils.NewValidationError("days", "days must not be negative")
	}
	today := l.now.today()
	rows, err := l.memberships.Expiring(ctx, today, today.AddDate(0, 0, days))
	if err != nil {
		return nil, errors.Wrap(err, "listing expiring memberships")
	}
	for i := range rows {
		rows[i].DaysLeft = int(model.NewDate(rows[i].EndDate).Sub(today).Hours() / 24)
	}
	return rows, nil
}

// MembershipHistory lists every membership of a member, newest first.
func (l *Ledger) MembershipHistory(ctx context.Context, userID uint64) ([]model.Membership, error) {
	if _, err := l.members.GetByID(ctx, userID); err != nil {
		return nil, memberErr(err, userID)
	}
	ms, err := l.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing memberships of member %d", userID)
	}
	return ms, nil
}

// EnrollMember creates a member directly, optionally with a first
// membership and payment, in one transaction.
func (l *Ledger) EnrollMember(ctx context.Context, actor *model.Actor, in model.NewMember) (*model.Enrollment, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if in.Payment != nil && in.Membership == nil {
		return nil, utils.NewValidationError("membership", "a payment needs a membership")
	}
	if err := validatePayment(in.Payment); err != nil {
		return nil, err
	}

	out := &model.Enrollment{}
	err := l.tx.InTx(ctx, func(tx repository.DBTX) error {
		m := &model.Member{
			Name:             strings.TrimSpace(in.Name),
			Email:            in.Email,
			Phone:            strings.TrimSpace(in.Phone),
			TrainingGoal:     model.MapTrainingGoal(in.TrainingGoal),
			MembershipStatus: model.MemberExpired,
			AssignedSellerID: in.AssignedSellerID,
			Attribution:      in.Attribution,

			EmergencyContactName:  in.EmergencyContactName,
			EmergencyContactPhone: in.EmergencyContactPhone,
			MedicalNotes:          in.MedicalNotes,
		}
		if err := l.members.CreateTx(ctx, tx, m); err != nil {
			return errors.Wrap(err, "inserting member")
		}
		out.Member = m
		if in.Membership == nil {
			return nil
		}
		plan, err := l.catalog.ResolvePlan(ctx, tx, in.Membership.Plan())
		if err != nil {
			return err
		}
		r, err := l.createTx(ctx, tx, model.NewMembership{
			UserID:          m.ID,
			MembershipTerms: *in.Membership,
			Payment:         in.Payment,
		}, plan)
		if err != nil {
			return err
		}
		out.Membership, out.Payment = r.Membership, r.Payment
		out.Member, err = l.members.GetByIDTx(ctx, tx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.audit.Record(ctx, model.LogEntry{
		ActionType:    model.ActionUserCreated,
		Description:   "Member " + out.Member.Name + " created",
		PerformedBy:   actor,
		EntityType:    model.EntityUser,
		EntityID:      out.Member.ID,
		EntityName:    out.Member.Name,
		RelatedUserID: &out.Member.ID,
	})
	if out.Membership != nil {
		l.recordCreated(ctx, actor, model.ActionMembershipCreated, out.Member.Name,
			&model.MembershipReceipt{Membership: out.Membership, Payment: out.Payment}, nil)
	}
	return out, nil
}

// createTx writes a membership for in.UserID under plan, its payment
// when one is given, and the member's copy of it.  The caller owns tx.
func (l *Ledger) createTx(ctx context.Context, tx repository.DBTX, in model.NewMembership, plan *model.MembershipPlan) (*model.MembershipReceipt, error) {
	start := l.now.today()
	if in.StartDate != nil && !in.StartDate.IsZero() {
		start = in.StartDate.Time
	}
	end := start.AddDate(0, plan.DurationMonths, 0)
	if in.EndDate != nil && !in.EndDate.IsZero() {
		end = in.EndDate.Time
	}
	if end.Before(start) {
		return nil, invalidRange()
	}

	m := &model.Membership{
		UserID:               in.UserID,
		MembershipPlanID:     plan.ID,
		StartDate:            start,
		EndDate:              end,
		Status:               model.MembershipActive,
		IsRenewal:            in.IsRenewal,
		PreviousMembershipID: in.PreviousMembershipID,
	}
	if err := l.memberships.CreateTx(ctx, tx, m); err != nil {
		return nil, errors.Wrap(err, "inserting membership")
	}
	if m.PlanName == "" {
		m.PlanName = plan.Name
	}
	out := &model.MembershipReceipt{Membership: m}

	if in.Payment != nil {
		p := newPaymentRow(in.Payment, plan, l.now())
		p.MembershipID, p.UserID = m.ID, m.UserID
		p.IsRenewal = p.IsRenewal || in.IsRenewal
		if !p.Amount.IsPositive() {
			return nil, utils.NewValidationError("amount", "amount must be positive")
		}
		if err := l.payments.CreateTx(ctx, tx, p); err != nil {
			return nil, errors.Wrap(err, "inserting payment")
		}
		out.Payment = p
	}

	err := l.members.SetMembershipTx(ctx, tx, m.UserID, model.MembershipSnapshot{
		MembershipID: m.ID,
		PlanName:     m.PlanName,
		Status:       memberStatusFor(m.Status),
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "updating member %d", m.UserID)
	}
	return out, nil
}

func (l *Ledger) recordCreated(ctx context.Context, actor *model.Actor, action model.ActionType, memberName string,
	r *model.MembershipReceipt, prev *model.Membership) {
	m := r.Membership
	var old map[string]any
	meta := map[string]any{"membershipPlanId": m.MembershipPlanID, "isRenewal": m.IsRenewal}
	if prev != nil {
		old = membershipFields(prev)
		meta["previousMembershipId"] = prev.ID
	}
	verb := "created"
	if action == model.ActionMembershipRenewed {
		verb = "renewed"
	}
	l.audit.Record(ctx, model.LogEntry{
		ActionType:          action,
		Description:         fmt.Sprintf("Membership %s %s for %s", m.PlanName, verb, memberName),
		PerformedBy:         actor,
		EntityType:          model.EntityMembership,
		EntityID:            m.ID,
		EntityName:          m.PlanName,
		RelatedUserID:       &m.UserID,
		RelatedMembershipID: &m.ID,
		Changes:             model.Snapshot(old, membershipFields(m)),
		Metadata:            meta,
	})
	if r.Payment != nil {
		recordPayment(ctx, l.audit, actor, r.Payment, memberName)
	}
}

func recordPayment(ctx context.Context, audit *Recorder, actor *model.Actor, p *model.Payment, memberName string) {
	audit.Record(ctx, model.LogEntry{
		ActionType:          model.ActionPaymentRecorded,
		Description:         fmt.Sprintf("Payment of %s (%s) recorded for %s", p.Amount.StringFixed(2), p.PaymentMethod, memberName),
		PerformedBy:         actor,
		EntityType:          model.EntityPayment,
		EntityID:            p.ID,
		EntityName:          p.PlanName,
		RelatedUserID:       &p.UserID,
		RelatedMembershipID: &p.MembershipID,
		Metadata: map[string]any{
			"amount":        p.Amount.String(),
			"paymentMethod": p.PaymentMethod,
			"paymentStatus": p.PaymentStatus,
			"isRenewal":     p.IsRenewal,
		},
	})
}

// validatePayment checks the parts of a payment that do not need the
// database.  A nil payment is valid.
func validatePayment(p *model.NewPayment) error {
	if p == nil {
		return nil
	}
	if !p.PaymentMethod.Valid() {
		return utils.NewValidationError("paymentMethod", "unknown payment method")
	}
	if p.PaymentStatus != "" && !p.PaymentStatus.Valid() {
		return utils.NewValidationError("paymentStatus", "unknown payment status")
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		return utils.NewValidationError("amount", "amount must be positive")
	}
	return nil
}

// newPaymentRow fills the defaults of in: the plan price for the method,
// completed, paid now.  plan may be nil when the amount is explicit.
func newPaymentRow(in *model.NewPayment, plan *model.MembershipPlan, now time.Time) *model.Payment {
	p := &model.Payment{
		MembershipID:  in.MembershipID,
		UserID:        in.UserID,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: in.PaymentStatus,
		PaymentDate:   now,
		IsRenewal:     in.IsRenewal,
		Notes:         in.Notes,
	}
	switch {
	case in.Amount != nil:
		p.Amount = *in.Amount
	case plan != nil:
		p.Amount = PriceFor(plan, in.PaymentMethod)
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = model.PaymentCompleted
	}
	if in.PaymentDate != nil && !in.PaymentDate.IsZero() {
		p.PaymentDate = in.PaymentDate.Time
	}
	return p
}

func memberStatusFor(s model.MembershipStatus) model.MemberStatus {
	if s == model.MembershipActive {
		return model.MemberActive
	}
	return model.MemberExpired
}

func membershipFields(m *model.Membership) map[string]any {
	return map[string]any{
		"membershipType": m.PlanName,
		"startDate":      m.StartDate.Format(model.DateLayout),
		"endDate":        m.EndDate.Format(model.DateLayout),
		"status":         m.Status,
	}
}

func invalidRange() error {
	return &utils.ValidationError{
		Err:    ErrInvalidRange,
		Fields: []utils.FieldError{{Field: "endDate", Error: ErrInvalidRange.Error()}},
	}
}

func memberErr(err error, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Wrapf(repository.ErrNotFound, "member %d", id)
	}
	return errors.Wrapf(err, "loading member %d", id)
}

func membershipErr(err error, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Wrapf(repository.ErrNotFound, "membership %d", id)
	}
	return errors.Wrapf(err, "loading membership %d", id)
}

package service

import (
	"context"
	"strings"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/repository"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// Catalog manages membership plans and their per-method prices.
type Catalog struct {
	plans PlanStore
	audit *Recorder
	log   *log.Logger
}

func NewCatalog(plans PlanStore, audit *Recorder, lg *log.Logger) *Catalog {
	return &Catalog{plans: plans, audit: audit, log: lg}
}

// PriceFor returns the price of plan for method.  The method-specific
// column wins when it is set; otherwise the base price applies.  A nil
// plan costs nothing.
func PriceFor(plan *model.MembershipPlan, method model.PaymentMethod) decimal.Decimal {
	if plan == nil {
		return decimal.Zero
	}
	var p decimal.NullDecimal
	switch method {
	case model.PaymentCash:
		p = plan.PriceEfectivo
	case model.PaymentDirectDebit:
		p = plan.PriceDebitoAutomatico
	case model.PaymentCardTransfer:
		p = plan.PriceTarjetaTransferencia
	}
	if p.Valid {
		return p.Decimal
	}
	return plan.Price
}

// ListPlans returns the catalogue ordered by duration then name.
func (c *Catalog) ListPlans(ctx context.Context, includeInactive bool) ([]model.MembershipPlan, error) {
	plans, err := c.plans.List(ctx, includeInactive)
	if err != nil {
		return nil, errors.Wrap(err, "listing plans")
	}
	return plans, nil
}

func (c *Catalog) GetPlan(ctx context.Context, id uint64) (*model.MembershipPlan, error) {
	p, err := c.plans.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &PlanNotFoundError{Ref: model.PlanRef{ID: id}}
		}
		return nil, errors.Wrapf(err, "loading plan %d", id)
	}
	return p, nil
}

// ResolvePlan looks a plan up by id, or by exact name when no id is
// given, for a new membership.  A reference that matches nothing is a
// *PlanNotFoundError; there is no fallback plan.  A plan that is no
// longer active is ErrPlanRetired.
func (c *Catalog) ResolvePlan(ctx context.Context, tx repository.DBTX, ref model.PlanRef) (*model.MembershipPlan, error) {
	return c.resolvePlan(ctx, tx, ref, 0)
}

// resolvePlan is ResolvePlan with one exception: the retired plan with id
// keep is still accepted.  Renewals pass the plan of the membership they
// replace.
func (c *Catalog) resolvePlan(ctx context.Context, tx repository.DBTX, ref model.PlanRef, keep uint64) (*model.MembershipPlan, error) {
	var (
		p   *model.MembershipPlan
		err error
	)
	switch {
	case ref.ID != 0:
		p, err = c.plans.GetByIDTx(ctx, tx, ref.ID)
	case strings.TrimSpace(ref.Name) != "":
		p, err = c.plans.GetByNameTx(ctx, tx, strings.TrimSpace(ref.Name))
	default:
		return nil, utils.NewValidationError("membershipPlanId", "a plan id or name is required")
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &PlanNotFoundError{Ref: ref}
		}
		return nil, errors.Wrapf(err, "resolving plan %s", ref)
	}
	if !p.IsActive && p.ID != keep {
		return nil, errors.Wrapf(ErrPlanRetired, "plan %s", p.Name)
	}
	return p, nil
}

// CreatePlan adds a plan.  Name and price are required and prices may
// not be negative.
func (c *Catalog) CreatePlan(ctx context.Context, actor *model.Actor, in model.NewPlan) (*model.MembershipPlan, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	p := &model.MembershipPlan{
		Name:                      strings.TrimSpace(in.Name),
		DurationMonths:            in.DurationMonths,
		Price:                     *in.Price,
		PriceEfectivo:             in.PriceEfectivo,
		PriceDebitoAutomatico:     in.PriceDebitoAutomatico,
		PriceTarjetaTransferencia: in.PriceTarjetaTransferencia,
		Description:               in.Description,
		IsActive:                  in.IsActive == nil || *in.IsActive,
	}
	if err := checkPrices(p); err != nil {
		return nil, err
	}
	if err := c.plans.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, utils.NewValidationError("name", "a plan with this name already exists")
		}
		return nil, errors.Wrap(err, "creating plan")
	}

	c.audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionPlanCreated,
		Description: "Plan " + p.Name + " created",
		PerformedBy: actor,
		EntityType:  model.EntityPlan,
		EntityID:    p.ID,
		EntityName:  p.Name,
		Changes:     model.Snapshot(nil, planFields(p)),
	})
	return p, nil
}

// UpdatePlan applies a partial update.  The duration is fixed once the
// plan exists; sending a different value is ErrDurationImmutable.
func (c *Catalog) UpdatePlan(ctx context.Context, actor *model.Actor, id uint64, in model.PlanUpdate) (*model.MembershipPlan, error) {
	cur, err := c.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DurationMonths != nil && *in.DurationMonths != cur.DurationMonths {
		return nil, ErrDurationImmutable
	}
	old := planFields(cur)

	next := *cur
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, utils.NewValidationError("name", "name must not be blank")
		}
		next.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		next.Price = *in.Price
	}
	if in.PriceEfectivo != nil {
		next.PriceEfectivo = *in.PriceEfectivo
	}
	if in.PriceDebitoAutomatico != nil {
		next.PriceDebitoAutomatico = *in.PriceDebitoAutomatico
	}
	if in.PriceTarjetaTransferencia != nil {
		next.PriceTarjetaTransferencia = *in.PriceTarjetaTransferencia
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.IsActive != nil {
		next.IsActive = *in.IsActive
	}
	if err := checkPrices(&next); err != nil {
		return nil, err
	}
	if err := c.plans.Update(ctx, &next); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, utils.NewValidationError("name", "a plan with this name already exists")
		case errors.Is(err, repository.ErrNotFound):
			return nil, &PlanNotFoundError{Ref: model.PlanRef{ID: id}}
		}
		return nil, errors.Wrapf(err, "updating plan %d", id)
	}

	c.audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionPlanUpdated,
		Description: "Plan " + next.Name + " updated",
		PerformedBy: actor,
		EntityType:  model.EntityPlan,
		EntityID:    next.ID,
		EntityName:  next.Name,
		Changes:     model.Snapshot(old, planFields(&next)),
	})
	return &next, nil
}

func checkPrices(p *model.MembershipPlan) error {
	if p.Price.IsNegative() {
		return utils.NewValidationError("price", "price must not be negative")
	}
	for field, np := range map[string]decimal.NullDecimal{
		"priceEfectivo":             p.PriceEfectivo,
		"priceDebitoAutomatico":     p.PriceDebitoAutomatico,
		"priceTarjetaTransferencia": p.PriceTarjetaTransferencia,
	} {
		if np.Valid && np.Decimal.IsNegative() {
			return utils.NewValidationError(field, "price must not be negative")
		}
	}
	return nil
}

// planFields is the audited view of a plan.
func planFields(p *model.MembershipPlan) map[string]any {
	opt := func(n decimal.NullDecimal) any {
		if !n.Valid {
			return nil
		}
		return n.Decimal.String()
	}
	return map[string]any{
		"name":                      p.Name,
		"durationMonths":            p.DurationMonths,
		"price":                     p.Price.String(),
		"priceEfectivo":             opt(p.PriceEfectivo),
		"priceDebitoAutomatico":     opt(p.PriceDebitoAutomatico),
		"priceTarjetaTransferencia": opt(p.PriceTarjetaTransferencia),
		"description":               p.Description,
		"isActive":                  p.IsActive,
	}
}

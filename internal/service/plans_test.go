package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/utils"
)

func TestPriceFor(t *testing.T) {
	plan := &model.MembershipPlan{
		Price:                 dec("100"),
		PriceEfectivo:         decimal.NewNullDecimal(dec("90")),
		PriceDebitoAutomatico: decimal.NewNullDecimal(dec("95.50")),
	}

	tests := []struct {
		method model.PaymentMethod
		want   string
	}{
		{model.PaymentCash, "90"},
		{model.PaymentDirectDebit, "95.5"},
		{model.PaymentCardTransfer, "100"}, // no override
		{model.PaymentMethod("bitcoin"), "100"},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.True(t, dec(tt.want).Equal(PriceFor(plan, tt.method)))
		})
	}
	assert.True(t, PriceFor(nil, model.PaymentCash).IsZero())
}

func TestResolvePlan(t *testing.T) {
	f := newFixture()
	basic := f.seedPlan("Socio_Basic", 1, "100")
	ctx := context.Background()

	p, err := f.catalog.ResolvePlan(ctx, nil, model.PlanRef{ID: basic.ID})
	require.NoError(t, err)
	assert.Equal(t, basic.ID, p.ID)

	p, err = f.catalog.ResolvePlan(ctx, nil, model.PlanRef{Name: " Socio_Basic "})
	require.NoError(t, err)
	assert.Equal(t, basic.ID, p.ID)

	_, err = f.catalog.ResolvePlan(ctx, nil, model.PlanRef{Name: "Socio_Platinum"})
	assert.ErrorIs(t, err, ErrPlanNotFound)
	var pnf *PlanNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "Socio_Platinum", pnf.Ref.Name)

	_, err = f.catalog.ResolvePlan(ctx, nil, model.PlanRef{ID: 9999})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = f.catalog.ResolvePlan(ctx, nil, model.PlanRef{})
	var ve *utils.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestResolvePlanRejectsRetired(t *testing.T) {
	f := newFixture()
	retired := f.seedPlan("Socio_Retirado", 1, "100")
	retired.IsActive = false
	f.w.plans[retired.ID] = retired
	ctx := context.Background()

	_, err := f.catalog.ResolvePlan(ctx, nil, model.PlanRef{Name: "Socio_Retirado"})
	assert.ErrorIs(t, err, ErrPlanRetired)
	_, err = f.catalog.ResolvePlan(ctx, nil, model.PlanRef{ID: retired.ID})
	assert.ErrorIs(t, err, ErrPlanRetired)

	p, err := f.catalog.resolvePlan(ctx, nil, model.PlanRef{ID: retired.ID}, retired.ID)
	require.NoError(t, err)
	assert.Equal(t, retired.ID, p.ID)
}

func TestCreatePlan(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := model.StaffActor(7, "Ana")

	p, err := f.catalog.CreatePlan(ctx, actor, model.NewPlan{
		Name:           " Socio_Semestral ",
		DurationMonths: 6,
		Price:          decp("500"),
		PriceEfectivo:  decimal.NewNullDecimal(dec("450")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Socio_Semestral", p.Name)
	assert.True(t, p.IsActive)
	assert.Equal(t, []model.ActionType{model.ActionPlanCreated}, f.w.actions())

	_, err = f.catalog.CreatePlan(ctx, actor, model.NewPlan{Name: "Socio_Semestral", DurationMonths: 6, Price: decp("1")})
	var ve *utils.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.FieldMap(), "name")

	_, err = f.catalog.CreatePlan(ctx, actor, model.NewPlan{Name: "X", DurationMonths: 1})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.FieldMap(), "price")

	_, err = f.catalog.CreatePlan(ctx, actor, model.NewPlan{Name: "Y", DurationMonths: 1, Price: decp("-1")})
	require.ErrorAs(t, err, &ve)
}

func TestUpdatePlan(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	plan := f.seedPlan("Socio_Basic", 1, "100")

	six := 6
	_, err := f.catalog.UpdatePlan(ctx, nil, plan.ID, model.PlanUpdate{DurationMonths: &six})
	assert.ErrorIs(t, err, ErrDurationImmutable)

	same := 1
	inactive := false
	desc := "Acceso libre"
	updated, err := f.catalog.UpdatePlan(ctx, nil, plan.ID, model.PlanUpdate{
		DurationMonths: &same,
		Price:          decp("120"),
		Description:    &desc,
		IsActive:       &inactive,
	})
	require.NoError(t, err)
	assert.True(t, dec("120").Equal(updated.Price))
	assert.False(t, updated.IsActive)
	assert.Equal(t, 1, updated.DurationMonths)

	require.Len(t, f.w.logs, 1)
	entry := f.w.logs[0]
	assert.Equal(t, model.ActionPlanUpdated, entry.ActionType)
	assert.Equal(t, model.PerformerSystem, entry.PerformedBy.Type)
	assert.Equal(t, "100", entry.Changes["old"].(map[string]any)["price"])
	assert.Equal(t, "120", entry.Changes["new"].(map[string]any)["price"])

	_, err = f.catalog.UpdatePlan(ctx, nil, 424242, model.PlanUpdate{})
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestListPlansHidesInactive(t *testing.T) {
	f := newFixture()
	f.seedPlan("Socio_Anual", 12, "1000")
	f.seedPlan("Socio_Basic", 1, "100")
	old := f.seedPlan("Legacy", 1, "50")
	old.IsActive = false
	f.w.plans[old.ID] = old

	plans, err := f.catalog.ListPlans(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Socio_Basic", plans[0].Name)

	all, err := f.catalog.ListPlans(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

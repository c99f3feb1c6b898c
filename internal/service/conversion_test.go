package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/utils"
)

func TestProspectToLead(t *testing.T) {
	f := newFixture()
	p := f.seedProspect("Carla")
	ctx := context.Background()

	lead, err := f.conversion.ProspectToLead(ctx, model.StaffActor(2, "Vendedor"), p.ID, model.LeadFromProspect{
		Name:         "Carla Gomez",
		Phone:        "555-1234",
		TrainingGoal: "Ganar masa muscular",
	})
	require.NoError(t, err)
	assert.Equal(t, model.LeadNew, lead.Status)
	assert.Equal(t, model.GoalMuscleGain, lead.TrainingGoal)
	assert.Equal(t, p.Email, lead.Email)
	assert.Equal(t, "instagram", lead.UTMSource)
	require.NotNil(t, lead.ProspectID)
	assert.Equal(t, p.ID, *lead.ProspectID)

	stored := f.w.prospects[p.ID]
	assert.True(t, stored.ConvertedToLead)
	assert.Equal(t, lead.ID, *stored.LeadID)
	assert.Equal(t, []model.ActionType{model.ActionProspectConvertedToLead}, f.w.actions())

	_, err = f.conversion.ProspectToLead(ctx, nil, p.ID, model.LeadFromProspect{
		Name: "Carla", Phone: "1", TrainingGoal: "x",
	})
	assert.ErrorIs(t, err, ErrAlreadyConverted)
	assert.Len(t, f.w.leads, 1)
}

func TestProspectToLeadValidation(t *testing.T) {
	f := newFixture()
	p := f.seedProspect("Carla")

	_, err := f.conversion.ProspectToLead(context.Background(), nil, p.ID, model.LeadFromProspect{Name: "Carla"})
	var ve *utils.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.FieldMap(), "phone")
	assert.Contains(t, ve.FieldMap(), "trainingGoal")
	assert.False(t, f.w.prospects[p.ID].ConvertedToLead)

	_, err = f.conversion.ProspectToLead(context.Background(), nil, 424242, model.LeadFromProspect{
		Name: "X", Phone: "1", TrainingGoal: "fitness",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeadToMember(t *testing.T) {
	f := newFixture()
	f.seedPlan("Socio_Basic", 1, "100")
	lead := f.seedLead("Diego")
	ctx := context.Background()

	out, err := f.conversion.LeadToMember(ctx, nil, lead.ID, model.MemberFromLead{
		MembershipTerms: model.MembershipTerms{PlanName: "Socio_Basic"},
		MemberProfile:   model.MemberProfile{EmergencyContactName: "Mama"},
		Payment:         &model.NewPayment{PaymentMethod: model.PaymentCardTransfer},
	})
	require.NoError(t, err)

	assert.Equal(t, "Diego", out.Member.Name)
	assert.Equal(t, "Mama", out.Member.EmergencyContactName)
	require.NotNil(t, out.Member.LeadID)
	assert.Equal(t, lead.ID, *out.Member.LeadID)
	assert.Equal(t, out.Membership.ID, *out.Member.CurrentMembershipID)
	assert.Equal(t, model.MemberActive, out.Member.MembershipStatus)
	assert.Equal(t, "Socio_Basic", out.Member.MembershipType)
	require.NotNil(t, out.Payment)
	assert.True(t, dec("100").Equal(out.Payment.Amount))

	l := f.w.leads[lead.ID]
	assert.True(t, l.ConvertedToUser)
	assert.Equal(t, model.LeadConverted, l.Status)

	assert.Equal(t, []model.ActionType{
		model.ActionLeadConvertedToUser, model.ActionMembershipCreated, model.ActionPaymentRecorded,
	}, f.w.actions())

	_, err = f.conversion.LeadToMember(ctx, nil, lead.ID, model.MemberFromLead{
		MembershipTerms: model.MembershipTerms{PlanName: "Socio_Basic"},
	})
	assert.ErrorIs(t, err, ErrAlreadyConverted)
	assert.Len(t, f.w.members, 1)
	assert.Len(t, f.w.memberships, 1)
}

func TestLeadToMemberIsAtomic(t *testing.T) {
	f := newFixture()
	f.seedPlan("Socio_Basic", 1, "100")
	lead := f.seedLead("Diego")
	f.w.failPayment = errors.New("connection reset")

	_, err := f.conversion.LeadToMember(context.Background(), nil, lead.ID, model.MemberFromLead{
		MembershipTerms: model.MembershipTerms{PlanName: "Socio_Basic"},
		Payment:         &model.NewPayment{PaymentMethod: model.PaymentCash},
	})
	require.Error(t, err)
	assert.Empty(t, f.w.members)
	assert.Empty(t, f.w.memberships)
	assert.False(t, f.w.leads[lead.ID].ConvertedToUser)
	assert.Empty(t, f.w.logs)
}

func TestLeadToMemberUnknownPlan(t *testing.T) {
	f := newFixture()
	lead := f.seedLead("Diego")

	_, err := f.conversion.LeadToMember(context.Background(), nil, lead.ID, model.MemberFromLead{
		MembershipTerms: model.MembershipTerms{PlanName: "Socio_Fantasma"},
	})
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.Empty(t, f.w.members)
	assert.False(t, f.w.leads[lead.ID].ConvertedToUser)
}

func TestLeadToMemberRetiredPlan(t *testing.T) {
	f := newFixture()
	retired := f.seedPlan("Socio_Retirado", 1, "100")
	retired.IsActive = false
	f.w.plans[retired.ID] = retired
	lead := f.seedLead("Diego")

	_, err := f.conversion.LeadToMember(context.Background(), nil, lead.ID, model.MemberFromLead{
		MembershipTerms: model.MembershipTerms{PlanName: "Socio_Retirado"},
		Payment:         &model.NewPayment{PaymentMethod: model.PaymentCash},
	})
	assert.ErrorIs(t, err, ErrPlanRetired)
	assert.Empty(t, f.w.members)
	assert.Empty(t, f.w.memberships)
	assert.Empty(t, f.w.payments)
	assert.False(t, f.w.leads[lead.ID].ConvertedToUser)
}

func TestChangeLeadStatus(t *testing.T) {
	f := newFixture()
	lead := f.seedLead("Diego")
	ctx := context.Background()

	_, err := f.conversion.ChangeLeadStatus(ctx, nil, lead.ID, model.StatusChange{Status: "perdido", Reason: "  "})
	assert.ErrorIs(t, err, ErrReasonRequired)
	assert.Equal(t, model.LeadContacted, f.w.leads[lead.ID].Status)
	assert.Empty(t, f.w.logs)

	l, err := f.conversion.ChangeLeadStatus(ctx, nil, lead.ID, model.StatusChange{Status: "lost", Reason: "precio"})
	require.NoError(t, err)
	assert.Equal(t, model.LeadLost, l.Status)
	assert.Equal(t, "precio", l.LostReason)

	l, err = f.conversion.ChangeLeadStatus(ctx, nil, lead.ID, model.StatusChange{Status: "en-negociacion", Reason: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, model.LeadNegotiating, l.Status)
	assert.Empty(t, l.LostReason)

	var ve *utils.ValidationError
	_, err = f.conversion.ChangeLeadStatus(ctx, nil, lead.ID, model.StatusChange{Status: "dormido"})
	assert.ErrorAs(t, err, &ve)
	_, err = f.conversion.ChangeLeadStatus(ctx, nil, lead.ID, model.StatusChange{Status: "converted"})
	assert.ErrorAs(t, err, &ve)

	assert.Equal(t, []model.ActionType{model.ActionLeadStatusChanged, model.ActionLeadStatusChanged}, f.w.actions())
	first := f.w.logs[0]
	assert.Equal(t, model.LeadContacted, first.Changes["old"].(map[string]any)["status"])
	assert.Equal(t, model.LeadLost, first.Changes["new"].(map[string]any)["status"])
}

func TestChangeMemberStatus(t *testing.T) {
	f := newFixture()
	member := f.seedMember("Lucia")
	ctx := context.Background()

	_, err := f.conversion.ChangeMemberStatus(ctx, nil, member.ID, model.StatusChange{Status: "cancelado"})
	assert.ErrorIs(t, err, ErrReasonRequired)

	m, err := f.conversion.ChangeMemberStatus(ctx, nil, member.ID, model.StatusChange{Status: "cancelled", Reason: "mudanza"})
	require.NoError(t, err)
	assert.Equal(t, model.MemberCancelled, m.MembershipStatus)
	assert.Equal(t, "mudanza", m.CancellationReason)

	m, err = f.conversion.ChangeMemberStatus(ctx, nil, member.ID, model.StatusChange{Status: "Activo"})
	require.NoError(t, err)
	assert.Equal(t, model.MemberActive, m.MembershipStatus)
	assert.Empty(t, m.CancellationReason)

	_, err = f.conversion.ChangeMemberStatus(ctx, nil, 424242, model.StatusChange{Status: "active"})
	assert.ErrorIs(t, err, ErrNotFound)

	var ve *utils.ValidationError
	_, err = f.conversion.ChangeMemberStatus(ctx, nil, member.ID, model.StatusChange{Status: "frozen"})
	assert.ErrorAs(t, err, &ve)

	assert.Equal(t, []model.ActionType{model.ActionUserStatusChanged, model.ActionUserStatusChanged}, f.w.actions())
	assert.Equal(t, member.ID, *f.w.logs[0].RelatedUserID)
}

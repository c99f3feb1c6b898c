package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/repository"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// Conversion moves people through the funnel: prospect to lead, lead to
// member.  It also owns the status changes that need a reason.
type Conversion struct {
	tx        Transactor
	prospects ProspectStore
	leads     LeadStore
	members   MemberStore
	ledger    *Ledger
	audit     *Recorder
	log       *log.Logger
}

func NewConversion(tx Transactor, prospects ProspectStore, leads LeadStore, members MemberStore,
	ledger *Ledger, audit *Recorder, lg *log.Logger) *Conversion {
	return &Conversion{
		tx:        tx,
		prospects: prospects,
		leads:     leads,
		members:   members,
		ledger:    ledger,
		audit:     audit,
		log:       lg,
	}
}

// ProspectToLead creates a lead from a prospect and marks the prospect
// converted.  Name, phone and training goal are required; the email
// falls back to the prospect's.
func (c *Conversion) ProspectToLead(ctx context.Context, actor *model.Actor, prospectID uint64, in model.LeadFromProspect) (*model.Lead, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	var (
		prospect *model.Prospect
		lead     *model.Lead
	)
	err := c.tx.InTx(ctx, func(tx repository.DBTX) error {
		var err error
		prospect, err = c.prospects.GetByIDTx(ctx, tx, prospectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.Wrapf(repository.ErrNotFound, "prospect %d", prospectID)
			}
			return errors.Wrapf(err, "loading prospect %d", prospectID)
		}
		if prospect.ConvertedToLead {
			return errors.Wrapf(ErrAlreadyConverted, "prospect %d", prospectID)
		}
		email := strings.TrimSpace(in.Email)
		if email == "" {
			email = prospect.Email
		}
		lead = &model.Lead{
			Name:             strings.TrimSpace(in.Name),
			Email:            email,
			Phone:            strings.TrimSpace(in.Phone),
			TrainingGoal:     model.MapTrainingGoal(in.TrainingGoal),
			Status:           model.LeadNew,
			Notes:            in.Notes,
			AssignedSellerID: in.AssignedSellerID,
			ProspectID:       &prospect.ID,
			Attribution:      prospect.Attribution,
		}
		if err := c.leads.CreateTx(ctx, tx, lead); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errors.Wrapf(ErrAlreadyConverted, "prospect %d", prospectID)
			}
			return errors.Wrap(err, "inserting lead")
		}
		if err := c.prospects.MarkConvertedTx(ctx, tx, prospect.ID, lead.ID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errors.Wrapf(ErrAlreadyConverted, "prospect %d", prospectID)
			}
			return errors.Wrapf(err, "marking prospect %d converted", prospectID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionProspectConvertedToLead,
		Description: fmt.Sprintf("Prospect %s converted to lead", lead.Name),
		PerformedBy: actor,
		EntityType:  model.EntityProspect,
		EntityID:    prospect.ID,
		EntityName:  prospect.Name,
		Metadata:    map[string]any{"leadId": lead.ID, "trainingGoal": lead.TrainingGoal},
	})
	return lead, nil
}

// LeadToMember creates the member, its first membership and payment and
// flips the lead to converted, all in one transaction.  A lead converts
// at most once.
func (c *Conversion) LeadToMember(ctx context.Context, actor *model.Actor, leadID uint64, in model.MemberFromLead) (*model.Enrollment, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if err := validatePayment(in.Payment); err != nil {
		return nil, err
	}

	var (
		lead *model.Lead
		out  = &model.Enrollment{}
	)
	err := c.tx.InTx(ctx, func(tx repository.DBTX) error {
		var err error
		lead, err = c.leads.GetByIDTx(ctx, tx, leadID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.Wrapf(repository.ErrNotFound, "lead %d", leadID)
			}
			return errors.Wrapf(err, "loading lead %d", leadID)
		}
		if lead.ConvertedToUser {
			return errors.Wrapf(ErrAlreadyConverted, "lead %d", leadID)
		}
		plan, err := c.ledger.catalog.ResolvePlan(ctx, tx, in.Plan())
		if err != nil {
			return err
		}

		member := &model.Member{
			Name:                  lead.Name,
			Email:                 lead.Email,
			Phone:                 lead.Phone,
			TrainingGoal:          lead.TrainingGoal,
			MembershipStatus:      model.MemberActive,
			EmergencyContactName:  in.EmergencyContactName,
			EmergencyContactPhone: in.EmergencyContactPhone,
			MedicalNotes:          in.MedicalNotes,
			AssignedSellerID:      lead.AssignedSellerID,
			LeadID:                &lead.ID,
			Attribution:           lead.Attribution,
		}
		if err := c.members.CreateTx(ctx, tx, member); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errors.Wrapf(ErrAlreadyConverted, "lead %d", leadID)
			}
			return errors.Wrap(err, "inserting member")
		}

		r, err := c.ledger.createTx(ctx, tx, model.NewMembership{
			UserID:          member.ID,
			MembershipTerms: in.MembershipTerms,
			Payment:         in.Payment,
		}, plan)
		if err != nil {
			return err
		}
		out.Membership, out.Payment = r.Membership, r.Payment

		if err := c.leads.MarkConvertedTx(ctx, tx, lead.ID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errors.Wrapf(ErrAlreadyConverted, "lead %d", leadID)
			}
			return errors.Wrapf(err, "marking lead %d converted", leadID)
		}
		out.Member, err = c.members.GetByIDTx(ctx, tx, member.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.audit.Record(ctx, model.LogEntry{
		ActionType:          model.ActionLeadConvertedToUser,
		Description:         fmt.Sprintf("Lead %s converted to member", lead.Name),
		PerformedBy:         actor,
		EntityType:          model.EntityLead,
		EntityID:            lead.ID,
		EntityName:          lead.Name,
		RelatedUserID:       &out.Member.ID,
		RelatedMembershipID: &out.Membership.ID,
		Metadata:            map[string]any{"membershipType": out.Membership.PlanName},
	})
	c.ledger.recordCreated(ctx, actor, model.ActionMembershipCreated, out.Member.Name,
		&model.MembershipReceipt{Membership: out.Membership, Payment: out.Payment}, nil)
	return out, nil
}

// ChangeLeadStatus moves a lead through the sales pipeline.  Losing a
// lead needs a reason, and "converted" is only reachable through
// LeadToMember.
func (c *Conversion) ChangeLeadStatus(ctx context.Context, actor *model.Actor, leadID uint64, in model.StatusChange) (*model.Lead, error) {
	status, ok := model.ParseLeadStatus(in.Status)
	if !ok {
		return nil, utils.NewValidationError("status", "unknown lead status")
	}
	if status == model.LeadConverted {
		return nil, utils.NewValidationError("status", "leads are converted through the conversion endpoint")
	}
	reason := strings.TrimSpace(in.Reason)
	if status == model.LeadLost && reason == "" {
		return nil, ErrReasonRequired
	}
	if status != model.LeadLost {
		reason = ""
	}

	var old, updated *model.Lead
	err := c.tx.InTx(ctx, func(tx repository.DBTX) error {
		var err error
		old, err = c.leads.GetByIDTx(ctx, tx, leadID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.Wrapf(repository.ErrNotFound, "lead %d", leadID)
			}
			return errors.Wrapf(err, "loading lead %d", leadID)
		}
		if old.ConvertedToUser {
			return errors.Wrapf(ErrAlreadyConverted, "lead %d", leadID)
		}
		if err := c.leads.SetStatusTx(ctx, tx, leadID, status, reason); err != nil {
			return errors.Wrapf(err, "updating lead %d", leadID)
		}
		updated, err = c.leads.GetByIDTx(ctx, tx, leadID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionLeadStatusChanged,
		Description: fmt.Sprintf("Lead %s moved from %s to %s", updated.Name, old.Status, updated.Status),
		PerformedBy: actor,
		EntityType:  model.EntityLead,
		EntityID:    updated.ID,
		EntityName:  updated.Name,
		Changes: model.Snapshot(
			map[string]any{"status": old.Status, "lostReason": old.LostReason},
			map[string]any{"status": updated.Status, "lostReason": updated.LostReason},
		),
	})
	return updated, nil
}

// ChangeMemberStatus sets a member's status.  Cancelling needs a reason,
// which is stored with the member and cleared by any other status.
func (c *Conversion) ChangeMemberStatus(ctx context.Context, actor *model.Actor, userID uint64, in model.StatusChange) (*model.Member, error) {
	status, ok := model.ParseMemberStatus(in.Status)
	if !ok {
		return nil, utils.NewValidationError("status", "unknown member status")
	}
	reason := strings.TrimSpace(in.Reason)
	if status == model.MemberCancelled && reason == "" {
		return nil, ErrReasonRequired
	}
	if status != model.MemberCancelled {
		reason = ""
	}

	var old, updated *model.Member
	err := c.tx.InTx(ctx, func(tx repository.DBTX) error {
		var err error
		if old, err = c.members.GetByIDTx(ctx, tx, userID); err != nil {
			return memberErr(err, userID)
		}
		if err := c.members.SetStatusTx(ctx, tx, userID, status, reason); err != nil {
			return errors.Wrapf(err, "updating member %d", userID)
		}
		updated, err = c.members.GetByIDTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.audit.Record(ctx, model.LogEntry{
		ActionType:    model.ActionUserStatusChanged,
		Description:   fmt.Sprintf("Member %s moved from %s to %s", updated.Name, old.MembershipStatus, updated.MembershipStatus),
		PerformedBy:   actor,
		EntityType:    model.EntityUser,
		EntityID:      updated.ID,
		EntityName:    updated.Name,
		RelatedUserID: &updated.ID,
		Changes: model.Snapshot(
			map[string]any{"status": old.MembershipStatus, "cancellationReason": old.CancellationReason},
			map[string]any{"status": updated.MembershipStatus, "cancellationReason": updated.CancellationReason},
		),
	})
	return updated, nil
}

package model

import "time"

// ActionType is the closed vocabulary of audited actions.
type ActionType string

const (
	ActionMembershipCreated       ActionType = "membership_created"
	ActionMembershipRenewed       ActionType = "membership_renewed"
	ActionMembershipUpdated       ActionType = "membership_updated"
	ActionPaymentRecorded         ActionType = "payment_recorded"
	ActionPlanCreated             ActionType = "membership_plan_created"
	ActionPlanUpdated             ActionType = "membership_plan_updated"
	ActionProspectCreated         ActionType = "prospect_created"
	ActionProspectUpdated         ActionType = "prospect_updated"
	ActionProspectConvertedToLead ActionType = "prospect_converted_to_lead"
	ActionLeadCreated             ActionType = "lead_created"
	ActionLeadUpdated             ActionType = "lead_updated"
	ActionLeadStatusChanged       ActionType = "lead_status_changed"
	ActionLeadAssigned            ActionType = "lead_assigned"
	ActionLeadConvertedToUser     ActionType = "lead_converted_to_user"
	ActionUserCreated             ActionType = "user_created"
	ActionUserUpdated             ActionType = "user_updated"
	ActionUserStatusChanged       ActionType = "user_status_changed"
	ActionSellerCreated           ActionType = "seller_created"
	ActionSellerUpdated           ActionType = "seller_updated"
	ActionStaffCreated            ActionType = "staff_created"
	ActionStaffDeleted            ActionType = "staff_deleted"
)

var actionTypes = map[ActionType]bool{
	ActionMembershipCreated: true, ActionMembershipRenewed: true, ActionMembershipUpdated: true,
	ActionPaymentRecorded: true, ActionPlanCreated: true, ActionPlanUpdated: true,
	ActionProspectCreated: true, ActionProspectUpdated: true, ActionProspectConvertedToLead: true,
	ActionLeadCreated: true, ActionLeadUpdated: true, ActionLeadStatusChanged: true,
	ActionLeadAssigned: true, ActionLeadConvertedToUser: true,
	ActionUserCreated: true, ActionUserUpdated: true, ActionUserStatusChanged: true,
	ActionSellerCreated: true, ActionSellerUpdated: true,
	ActionStaffCreated: true, ActionStaffDeleted: true,
}

// Valid reports whether a belongs to the audited vocabulary.
func (a ActionType) Valid() bool { return actionTypes[a] }

// Entity types referenced by log rows.
const (
	EntityMembership = "membership"
	EntityPayment    = "payment"
	EntityPlan       = "membership_plan"
	EntityProspect   = "prospect"
	EntityLead       = "lead"
	EntityUser       = "user"
	EntitySeller     = "seller"
	EntityStaff      = "staff"
)

// Performer types.
const (
	PerformerStaff  = "staff"
	PerformerSystem = "system"
)

// SystemName is shown for entries without a human performer.
const SystemName = "Sistema"

// Actor identifies who performed an action.  A nil *Actor is the system.
type Actor struct {
	ID   *uint64 `json:"id"`
	Type string  `json:"type"`
	Name string  `json:"name"`
}

// SystemActor is the performer recorded when no staff account is involved.
func SystemActor() Actor { return Actor{Type: PerformerSystem, Name: SystemName} }

// StaffActor builds the performer for an authenticated staff request.
func StaffActor(id uint64, name string) *Actor {
	return &Actor{ID: &id, Type: PerformerStaff, Name: name}
}

// LogEntry is what mutating operations hand to the audit recorder.
// Changes conventionally holds "old" and "new" snapshots.
type LogEntry struct {
	ActionType          ActionType     `json:"actionType"`
	Description         string         `json:"description"`
	PerformedBy         *Actor         `json:"performedBy"`
	EntityType          string         `json:"entityType"`
	EntityID            uint64         `json:"entityId"`
	EntityName          string         `json:"entityName"`
	RelatedUserID       *uint64        `json:"relatedUserId"`
	RelatedMembershipID *uint64        `json:"relatedMembershipId"`
	Changes             map[string]any `json:"changes"`
	Metadata            map[string]any `json:"metadata"`
}

// LogRow is a persisted entry of the `logs` table.  Rows are never
// updated or deleted.
type LogRow struct {
	ID uint64 `json:"id"`
	LogEntry
	CreatedAt time.Time `json:"createdAt"`
}

// LogFilter selects log rows.  Exactly one of the id fields or
// ActionType is normally set; none means "recent activity".
type LogFilter struct {
	UserID       *uint64
	MembershipID *uint64
	PerformerID  *uint64
	ActionType   ActionType
	Limit        int
}

// Snapshot builds the conventional {"old": ..., "new": ...} change set.
func Snapshot(old, new map[string]any) map[string]any {
	return map[string]any{"old": old, "new": new}
}

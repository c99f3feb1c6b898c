package model

import (
	"strings"
	"time"
)

// MemberStatus is the membership status copied onto the member row.
type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberExpired   MemberStatus = "expired"
	MemberCancelled MemberStatus = "cancelled"
)

// legacy Spanish values still present in older rows and sent by old clients
var memberStatusSynonyms = map[string]MemberStatus{
	"active":    MemberActive,
	"activo":    MemberActive,
	"activa":    MemberActive,
	"expired":   MemberExpired,
	"vencido":   MemberExpired,
	"vencida":   MemberExpired,
	"expirado":  MemberExpired,
	"expirada":  MemberExpired,
	"cancelled": MemberCancelled,
	"canceled":  MemberCancelled,
	"cancelado": MemberCancelled,
	"cancelada": MemberCancelled,
}

// ParseMemberStatus normalizes s to a MemberStatus.  The second return
// value is false when s is not a known status or synonym.
func ParseMemberStatus(s string) (MemberStatus, bool) {
	st, ok := memberStatusSynonyms[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// NormalizeMemberStatus is used by repositories when reading rows.
// Unknown values are kept verbatim.
func NormalizeMemberStatus(s string) MemberStatus {
	if st, ok := ParseMemberStatus(s); ok {
		return st
	}
	return MemberStatus(s)
}

// Attribution holds the marketing fields captured on the landing page and
// inherited prospect → lead → member.
type Attribution struct {
	UTMSource   string `json:"utmSource"`
	UTMMedium   string `json:"utmMedium"`
	UTMCampaign string `json:"utmCampaign"`
	UTMTerm     string `json:"utmTerm"`
	UTMContent  string `json:"utmContent"`
}

// Member represents a row in the `users` table (a paying gym client).
// The membership fields are a denormalized copy of the current
// membership and are maintained by the membership ledger.
type Member struct {
	ID                    uint64       `json:"id"`
	Name                  string       `json:"name"`
	Email                 string       `json:"email"`
	Phone                 string       `json:"phone"`
	TrainingGoal          TrainingGoal `json:"trainingGoal"`
	MembershipType        string       `json:"membershipType"`
	MembershipStatus      MemberStatus `json:"membershipStatus"`
	MembershipStartDate   *time.Time   `json:"membershipStartDate"`
	MembershipEndDate     *time.Time   `json:"membershipEndDate"`
	CurrentMembershipID   *uint64      `json:"currentMembershipId"`
	EmergencyContactName  string       `json:"emergencyContactName"`
	EmergencyContactPhone string       `json:"emergencyContactPhone"`
	MedicalNotes          string       `json:"medicalNotes"`
	CancellationReason    string       `json:"cancellationReason"`
	AssignedSellerID      *uint64      `json:"assignedSellerId"`
	LeadID                *uint64      `json:"leadId"`
	Attribution
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MemberUpdate is a partial update of the editable member fields.  The
// membership fields are not editable here; they follow the ledger.
type MemberUpdate struct {
	Name                  *string       `json:"name"`
	Email                 *string       `json:"email" validate:"omitempty,email"`
	Phone                 *string       `json:"phone"`
	TrainingGoal          *string       `json:"trainingGoal"`
	EmergencyContactName  *string       `json:"emergencyContactName"`
	EmergencyContactPhone *string       `json:"emergencyContactPhone"`
	MedicalNotes          *string       `json:"medicalNotes"`
	AssignedSellerID      *uint64       `json:"assignedSellerId"`
}

// MemberFilter narrows member listings.
type MemberFilter struct {
	Status   MemberStatus
	SellerID uint64
	Search   string
	Limit    int
	Offset   int
}

// MemberProfile holds the member fields that do not come from the lead.
type MemberProfile struct {
	EmergencyContactName  string `json:"emergencyContactName"`
	EmergencyContactPhone string `json:"emergencyContactPhone"`
	MedicalNotes          string `json:"medicalNotes"`
}

// MemberFromLead is the body of the lead conversion endpoint.
type MemberFromLead struct {
	MembershipTerms
	MemberProfile
	Payment *NewPayment `json:"payment"`
}

// NewMember is a direct admin enrolment.  Membership is optional; when
// present the member is created together with its first membership.
type NewMember struct {
	Name             string  `json:"name" validate:"notblank"`
	Email            string  `json:"email" validate:"required,email"`
	Phone            string  `json:"phone"`
	TrainingGoal     string  `json:"trainingGoal"`
	AssignedSellerID *uint64 `json:"assignedSellerId"`
	MemberProfile
	Attribution
	Membership *MembershipTerms `json:"membership"`
	Payment    *NewPayment      `json:"payment"`
}

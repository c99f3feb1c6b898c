package model

import "time"

// MembershipStatus is the state of a single membership row.  Only one
// membership per member is expected to be active at any time.
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipExpired MembershipStatus = "expired"
)

// Valid reports whether s is a known membership status.
func (s MembershipStatus) Valid() bool {
	return s == MembershipActive || s == MembershipExpired
}

// Membership represents a row in the `memberships` table.  Renewals form
// a linked list through PreviousMembershipID.
//
// Fields:
//  ID                   - primary key.
//  UserID               - member the subscription belongs to.
//  MembershipPlanID     - plan resolved at creation time.
//  PlanName             - plan name (joined from membership_plans, read only).
//  StartDate / EndDate  - validity window (dates, inclusive).
//  Status               - active or expired.
//  IsRenewal            - true when the row superseded an earlier membership.
//  PreviousMembershipID - membership this one renewed (nullable).
type Membership struct {
	ID                   uint64           `json:"id"`
	UserID               uint64           `json:"userId"`
	MembershipPlanID     uint64           `json:"membershipPlanId"`
	PlanName             string           `json:"membershipType,omitempty"`
	StartDate            time.Time        `json:"startDate"`
	EndDate              time.Time        `json:"endDate"`
	Status               MembershipStatus `json:"status"`
	IsRenewal            bool             `json:"isRenewal"`
	PreviousMembershipID *uint64          `json:"previousMembershipId"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// ExpiringMembership is an active membership joined with the contact
// details of its member, used by the dashboard expiry alert.
type ExpiringMembership struct {
	Membership
	MemberName  string `json:"memberName"`
	MemberEmail string `json:"memberEmail"`
	MemberPhone string `json:"memberPhone"`
	DaysLeft    int    `json:"daysLeft"`
}

// MembershipSnapshot is the copy of the current membership kept on the
// member row so list views do not have to join.
type MembershipSnapshot struct {
	MembershipID uint64
	PlanName     string
	Status       MemberStatus
	StartDate    time.Time
	EndDate      time.Time
}

// MembershipTerms selects the plan and validity window of a new
// membership.  The plan is referenced by id or by exact name; EndDate
// defaults to StartDate plus the plan duration and StartDate to today.
type MembershipTerms struct {
	PlanID    uint64 `json:"membershipPlanId"`
	PlanName  string `json:"membershipType"`
	StartDate *Date  `json:"startDate"`
	EndDate   *Date  `json:"endDate"`
}

// Plan returns the plan reference carried by t.
func (t MembershipTerms) Plan() PlanRef { return PlanRef{ID: t.PlanID, Name: t.PlanName} }

// NewMembership is the input of the ledger's create operation.
type NewMembership struct {
	UserID uint64 `json:"userId" validate:"required"`
	MembershipTerms
	Payment *NewPayment `json:"payment"`

	// set by the renewal path
	IsRenewal            bool    `json:"-"`
	PreviousMembershipID *uint64 `json:"-"`
}

// Renewal is the body of a renewal request.
type Renewal struct {
	CurrentMembershipID LooseID `json:"currentMembershipId"`
	MembershipTerms
	Payment *NewPayment `json:"payment"`
}

// MembershipPatch is a direct correction of a membership.  With
// UpdateUser set the member's denormalized copy follows the change.
type MembershipPatch struct {
	Status     *MembershipStatus `json:"status"`
	EndDate    *Date             `json:"endDate"`
	UpdateUser bool              `json:"updateUser"`
}

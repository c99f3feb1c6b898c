package model

// MembershipReceipt is what the ledger returns after writing a
// membership: the row itself and the payment recorded with it, if any.
type MembershipReceipt struct {
	Membership *Membership `json:"membership"`
	Payment    *Payment    `json:"payment,omitempty"`
}

// Enrollment is a member together with the membership and payment
// written with it, as returned by lead conversion and direct enrolment.
type Enrollment struct {
	Member     *Member     `json:"member"`
	Membership *Membership `json:"membership"`
	Payment    *Payment    `json:"payment,omitempty"`
}

// Dashboard section names, used in DashboardSnapshot.Failed.
const (
	SectionExpiring  = "expiringMemberships"
	SectionRevenue   = "revenue"
	SectionLeads     = "leadsByStatus"
	SectionProspects = "unconvertedProspects"
	SectionActivity  = "recentActivity"
)

// DashboardSnapshot aggregates the dashboard's independent reads.  A
// section whose read failed keeps its empty value and is listed in Failed.
type DashboardSnapshot struct {
	ExpiringMemberships  []ExpiringMembership `json:"expiringMemberships"`
	Revenue              *RevenueStats        `json:"revenue"`
	LeadsByStatus        map[LeadStatus]int   `json:"leadsByStatus"`
	UnconvertedProspects int                  `json:"unconvertedProspects"`
	RecentActivity       []LogRow             `json:"recentActivity"`
	Failed               []string             `json:"failed"`
}

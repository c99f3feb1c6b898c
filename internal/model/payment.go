package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus of a payment row.  Revenue only counts completed payments.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPending   PaymentStatus = "pending"
	PaymentFailed    PaymentStatus = "failed"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentCompleted, PaymentPending, PaymentFailed:
		return true
	}
	return false
}

// Payment mirrors the `payments` table.  Rows are never updated or deleted.
type Payment struct {
	ID            uint64          `json:"id"`
	MembershipID  uint64          `json:"membershipId"`
	UserID        uint64          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaymentDate   time.Time       `json:"paymentDate"`
	IsRenewal     bool            `json:"isRenewal"`
	Notes         string          `json:"notes"`
	PlanName      string          `json:"membershipType,omitempty"` // joined through memberships, read only
	CreatedAt     time.Time       `json:"createdAt"`
}

// TypeRevenue is the subtotal for one membership type.
type TypeRevenue struct {
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

// RevenueStats summarises completed payments in a date range.
type RevenueStats struct {
	StartDate           time.Time               `json:"startDate"`
	EndDate             time.Time               `json:"endDate"`
	TotalRevenue        decimal.Decimal         `json:"totalRevenue"`
	PaymentCount        int                     `json:"paymentCount"`
	NewCustomersRevenue decimal.Decimal         `json:"newCustomersRevenue"`
	NewCustomersCount   int                     `json:"newCustomersCount"`
	RenewalsRevenue     decimal.Decimal         `json:"renewalsRevenue"`
	RenewalsCount       int                     `json:"renewalsCount"`
	ByMembershipType    map[string]*TypeRevenue `json:"byMembershipType"`
}

// NewPayment is a payment to append.  Amount defaults to the plan price
// for the method, PaymentDate to now and PaymentStatus to completed.
type NewPayment struct {
	MembershipID  uint64           `json:"membershipId"`
	UserID        uint64           `json:"userId"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod    `json:"paymentMethod" validate:"required"`
	PaymentStatus PaymentStatus    `json:"paymentStatus"`
	PaymentDate   *Date            `json:"paymentDate"`
	IsRenewal     bool             `json:"isRenewal"`
	Notes         string           `json:"notes"`
}

// PaymentFilter narrows payment listings.  Zero values are ignored.
type PaymentFilter struct {
	UserID       uint64
	MembershipID uint64
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

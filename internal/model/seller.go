package model

import "time"

// Seller is a member of the sales team; leads and members can be assigned
// to one.  Sellers are deactivated rather than deleted.
type Seller struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NewSeller struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type SellerUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"isActive"`
}

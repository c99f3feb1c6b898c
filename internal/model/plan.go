package model

import (
    "strconv"
    "time"

    "github.com/shopspring/decimal"
)

// PaymentMethod identifies how a member paid.  The values are the ones
// stored in the payments table and sent by the dashboard.
type PaymentMethod string

const (
    PaymentCash         PaymentMethod = "efectivo"
    PaymentDirectDebit  PaymentMethod = "debito_automatico"
    PaymentCardTransfer PaymentMethod = "tarjeta_transferencia"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
    switch m {
    case PaymentCash, PaymentDirectDebit, PaymentCardTransfer:
        return true
    }
    return false
}

// MembershipPlan represents a row in the `membership_plans` table.  A plan
// defines how long a membership lasts and how much it costs for each
// payment method.  Method-specific prices are nullable; when unset the
// base Price applies.
//
// Fields:
//  ID                        - primary key.
//  Name                      - unique display name (e.g. Socio_Basic).
//  DurationMonths            - length of a membership; fixed after creation.
//  Price                     - base price.
//  PriceEfectivo             - cash price (nullable).
//  PriceDebitoAutomatico     - direct-debit price (nullable).
//  PriceTarjetaTransferencia - card/transfer price (nullable).
//  IsActive                  - hidden from new enrolments when false.
//  Description               - free text shown in the plan picker.
type MembershipPlan struct {
    ID                        uint64              `json:"id"`                        // membership_plans.id
    Name                      string              `json:"name"`                      // membership_plans.name
    DurationMonths            int                 `json:"durationMonths"`            // membership_plans.duration_months
    Price                     decimal.Decimal     `json:"price"`                     // membership_plans.price
    PriceEfectivo             decimal.NullDecimal `json:"priceEfectivo"`             // membership_plans.price_efectivo
    PriceDebitoAutomatico     decimal.NullDecimal `json:"priceDebitoAutomatico"`     // membership_plans.price_debito_automatico
    PriceTarjetaTransferencia decimal.NullDecimal `json:"priceTarjetaTransferencia"` // membership_plans.price_tarjeta_transferencia
    IsActive                  bool                `json:"isActive"`                  // membership_plans.is_active
    Description               string              `json:"description"`               // membership_plans.description
    CreatedAt                 time.Time           `json:"createdAt"`                 // membership_plans.created_at
    UpdatedAt                 time.Time           `json:"updatedAt"`                 // membership_plans.updated_at
}

// NewPlan carries the fields accepted when creating a plan.
type NewPlan struct {
    Name                      string               `json:"name" validate:"notblank"`
    DurationMonths            int                  `json:"durationMonths" validate:"required,min=1,max=60"`
    Price                     *decimal.Decimal     `json:"price" validate:"required"`
    PriceEfectivo             decimal.NullDecimal  `json:"priceEfectivo"`
    PriceDebitoAutomatico     decimal.NullDecimal  `json:"priceDebitoAutomatico"`
    PriceTarjetaTransferencia decimal.NullDecimal  `json:"priceTarjetaTransferencia"`
    Description               string               `json:"description"`
    IsActive                  *bool                `json:"isActive"`
}

// PlanUpdate is a partial update; nil fields are left untouched.
type PlanUpdate struct {
    Name                      *string              `json:"name"`
    DurationMonths            *int                 `json:"durationMonths"`
    Price                     *decimal.Decimal     `json:"price"`
    PriceEfectivo             *decimal.NullDecimal `json:"priceEfectivo"`
    PriceDebitoAutomatico     *decimal.NullDecimal `json:"priceDebitoAutomatico"`
    PriceTarjetaTransferencia *decimal.NullDecimal `json:"priceTarjetaTransferencia"`
    Description               *string              `json:"description"`
    IsActive                  *bool                `json:"isActive"`
}

// PlanRef names a plan by id or by exact name.  The id wins when both
// are set.
type PlanRef struct {
    ID   uint64
    Name string
}

func (r PlanRef) String() string {
    if r.ID != 0 {
        return "#" + strconv.FormatUint(r.ID, 10)
    }
    return r.Name
}

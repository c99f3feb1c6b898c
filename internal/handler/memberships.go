package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/middleware"
	"github.com/iliyamo/gymdesk/internal/model"
)

// MembershipHandler exposes the membership ledger.
type MembershipHandler struct {
	Ledger     LedgerService
	ExpiryDays int
}

func NewMembershipHandler(l LedgerService, expiryDays int) *MembershipHandler {
	return &MembershipHandler{Ledger: l, ExpiryDays: expiryDays}
}

// Create handles POST /v1/memberships.
func (h *MembershipHandler) Create(c echo.Context) error {
	var in model.NewMembership
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Ledger.CreateMembership(ctx, middleware.Actor(c), in)
	if err != nil {
		return err
	}
	return created(c, r)
}

// Renew handles POST /v1/users/:id/renew.
func (h *MembershipHandler) Renew(c echo.Context) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.Renewal
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Ledger.RenewMembership(ctx, middleware.Actor(c), userID, in)
	if err != nil {
		return err
	}
	return created(c, r)
}

// Update handles PATCH /v1/memberships/:id.
func (h *MembershipHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var patch model.MembershipPatch
	if err := c.Bind(&patch); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Ledger.UpdateMembership(ctx, middleware.Actor(c), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// Expiring handles GET /v1/memberships/expiring?days=N.  Without days
// the configured alert horizon applies.
func (h *MembershipHandler) Expiring(c echo.Context) error {
	days, err := queryInt(c, "days", h.ExpiryDays)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rows, err := h.Ledger.GetExpiringMemberships(ctx, days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// History handles GET /v1/users/:id/memberships.
func (h *MembershipHandler) History(c echo.Context) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ms, err := h.Ledger.MembershipHistory(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ms)
}

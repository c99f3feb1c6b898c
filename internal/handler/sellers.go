package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/middleware"
	"github.com/iliyamo/gymdesk/internal/model"
)

// SellerHandler serves /v1/sellers.  Sellers are never deleted; DELETE
// deactivates.
type SellerHandler struct {
	Sellers SellerStore
	Audit   AuditRecorder
}

func NewSellerHandler(s SellerStore, audit AuditRecorder) *SellerHandler {
	return &SellerHandler{Sellers: s, Audit: audit}
}

func (h *SellerHandler) Create(c echo.Context) error {
	var in model.NewSeller
	if err := bindValid(c, &in); err != nil {
		return err
	}
	s := &model.Seller{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Phone:    strings.TrimSpace(in.Phone),
		IsActive: true,
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Sellers.Create(ctx, s); err != nil {
		return err
	}
	h.record(c, model.ActionSellerCreated, s, "created", nil)
	return created(c, s)
}

// List handles GET /v1/sellers?includeInactive=true.
func (h *SellerHandler) List(c echo.Context) error {
	inactive, err := queryBool(c, "includeInactive")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	ss, err := h.Sellers.List(ctx, inactive != nil && *inactive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ss)
}

// Update handles PATCH /v1/sellers/:id.
func (h *SellerHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.SellerUpdate
	if err := bindValid(c, &in); err != nil {
		return err
	}
	return h.apply(c, id, in, "updated")
}

// Deactivate handles DELETE /v1/sellers/:id.
func (h *SellerHandler) Deactivate(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	off := false
	return h.apply(c, id, model.SellerUpdate{IsActive: &off}, "deactivated")
}

func (h *SellerHandler) apply(c echo.Context, id uint64, in model.SellerUpdate, verb string) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	old, err := h.Sellers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := h.Sellers.Update(ctx, id, in); err != nil {
		return err
	}
	s, err := h.Sellers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.record(c, model.ActionSellerUpdated, s, verb, model.Snapshot(sellerFields(old), sellerFields(s)))
	return c.JSON(http.StatusOK, s)
}

func (h *SellerHandler) record(c echo.Context, action model.ActionType, s *model.Seller, verb string, changes map[string]any) {
	h.Audit.Record(c.Request().Context(), model.LogEntry{
		ActionType:  action,
		Description: "Seller " + s.Name + " " + verb,
		PerformedBy: middleware.Actor(c),
		EntityType:  model.EntitySeller,
		EntityID:    s.ID,
		EntityName:  s.Name,
		Changes:     changes,
	})
}

func sellerFields(s *model.Seller) map[string]any {
	return map[string]any{"name": s.Name, "email": s.Email, "phone": s.Phone, "isActive": s.IsActive}
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/config"
	"github.com/iliyamo/gymdesk/internal/middleware"
	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/service"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// StaffHandler manages back-office accounts.  Creating and deleting
// accounts is only possible while SERVICE_KEY is configured.
type StaffHandler struct {
	Cfg   config.Config
	Staff StaffStore
	Audit AuditRecorder
}

func NewStaffHandler(cfg config.Config, s StaffStore, audit AuditRecorder) *StaffHandler {
	return &StaffHandler{Cfg: cfg, Staff: s, Audit: audit}
}

func (h *StaffHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	ss, err := h.Staff.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ss)
}

// Create handles POST /v1/staff.
func (h *StaffHandler) Create(c echo.Context) error {
	if !h.Cfg.StaffProvisioning() {
		return service.ErrProvisioningClosed
	}
	var in model.NewStaff
	if err := bindValid(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := h.Staff.Create(ctx, in, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	s, err := h.Staff.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionStaffCreated,
		Description: "Staff account " + s.Email + " created",
		PerformedBy: middleware.Actor(c),
		EntityType:  model.EntityStaff,
		EntityID:    s.ID,
		EntityName:  s.Name,
		Metadata:    map[string]any{"role": s.Role},
	})
	return created(c, s)
}

// Delete handles DELETE /v1/staff/:id.  An account cannot delete itself.
func (h *StaffHandler) Delete(c echo.Context) error {
	if !h.Cfg.StaffProvisioning() {
		return service.ErrProvisioningClosed
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if self, ok := middleware.StaffID(c); ok && self == id {
		return utils.NewValidationError("id", "cannot delete your own account")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Staff.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := h.Staff.Delete(ctx, id); err != nil {
		return err
	}
	h.Audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionStaffDeleted,
		Description: "Staff account " + s.Email + " deleted",
		PerformedBy: middleware.Actor(c),
		EntityType:  model.EntityStaff,
		EntityID:    s.ID,
		EntityName:  s.Name,
	})
	return c.NoContent(http.StatusNoContent)
}

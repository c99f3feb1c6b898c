package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iliyamo/gymdesk/internal/middleware"
	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/repository"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// LeadHandler serves /v1/leads.  Status changes and conversion go
// through the conversion workflow; plain edits go straight to the store.
type LeadHandler struct {
	Leads      LeadStore
	Sellers    SellerStore
	Conversion ConversionService
	Audit      AuditRecorder
}

func NewLeadHandler(leads LeadStore, sellers SellerStore, conv ConversionService, audit AuditRecorder) *LeadHandler {
	return &LeadHandler{Leads: leads, Sellers: sellers, Conversion: conv, Audit: audit}
}

// Create handles POST /v1/leads.
func (h *LeadHandler) Create(c echo.Context) error {
	var in model.NewLead
	if err := bindValid(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.checkSeller(c, in.AssignedSellerID); err != nil {
		return err
	}
	l := &model.Lead{
		Name:             strings.TrimSpace(in.Name),
		Email:            in.Email,
		Phone:            strings.TrimSpace(in.Phone),
		TrainingGoal:     model.MapTrainingGoal(in.TrainingGoal),
		Status:           model.LeadNew,
		Notes:            in.Notes,
		AssignedSellerID: in.AssignedSellerID,
		Attribution:      in.Attribution,
	}
	if err := h.Leads.Create(ctx, l); err != nil {
		return err
	}
	h.Audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionLeadCreated,
		Description: "Lead " + l.Name + " created",
		PerformedBy: middleware.Actor(c),
		EntityType:  model.EntityLead,
		EntityID:    l.ID,
		EntityName:  l.Name,
	})
	return created(c, l)
}

// List handles GET /v1/leads?status=&sellerId=&search=.
func (h *LeadHandler) List(c echo.Context) error {
	var (
		f   model.LeadFilter
		err error
	)
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := model.ParseLeadStatus(raw)
		if !ok {
			return utils.NewValidationError("status", "unknown lead status")
		}
		f.Status = st
	}
	if f.SellerID, err = queryUint(c, "sellerId"); err != nil {
		return err
	}
	if f.Limit, f.Offset, err = page(c); err != nil {
		return err
	}
	f.Search = c.QueryParam("search")

	ctx, cancel := requestContext(c)
	defer cancel()
	ls, err := h.Leads.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ls)
}

func (h *LeadHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	l, err := h.Leads.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// Update handles PATCH /v1/leads/:id.
func (h *LeadHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.LeadUpdate
	if err := bindValid(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Leads.Update(ctx, id, in); err != nil {
		return err
	}
	l, err := h.Leads.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionLeadUpdated,
		Description: "Lead " + l.Name + " updated",
		PerformedBy: middleware.Actor(c),
		EntityType:  model.EntityLead,
		EntityID:    l.ID,
		EntityName:  l.Name,
	})
	return c.JSON(http.StatusOK, l)
}

type assignReq struct {
	SellerID *uint64 `json:"sellerId"`
}

// Assign handles PUT /v1/leads/:id/seller.  A null sellerId clears the
// assignment.
func (h *LeadHandler) Assign(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if req.SellerID != nil && *req.SellerID == 0 {
		req.SellerID = nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.checkSeller(c, req.SellerID); err != nil {
		return err
	}
	if err := h.Leads.AssignSeller(ctx, id, req.SellerID); err != nil {
		return err
	}
	l, err := h.Leads.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionLeadAssigned,
		Description: "Lead " + l.Name + " assigned",
		PerformedBy: middleware.Actor(c),
		EntityType:  model.EntityLead,
		EntityID:    l.ID,
		EntityName:  l.Name,
		Metadata:    map[string]any{"sellerId": req.SellerID},
	})
	return c.JSON(http.StatusOK, l)
}

// Status handles PATCH /v1/leads/:id/status.
func (h *LeadHandler) Status(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.StatusChange
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Conversion.ChangeLeadStatus(ctx, middleware.Actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// Convert handles POST /v1/leads/:id/convert.
func (h *LeadHandler) Convert(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.MemberFromLead
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Conversion.LeadToMember(ctx, middleware.Actor(c), id, in)
	if err != nil {
		return err
	}
	return created(c, e)
}

// checkSeller rejects an assignment to a seller that does not exist or
// has been deactivated.
func (h *LeadHandler) checkSeller(c echo.Context, id *uint64) error {
	if id == nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	s, err := h.Sellers.GetByID(ctx, *id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.NewValidationError("sellerId", "unknown seller")
		}
		return err
	}
	if !s.IsActive {
		return utils.NewValidationError("sellerId", "seller is inactive")
	}
	return nil
}

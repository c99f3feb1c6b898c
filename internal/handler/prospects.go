package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/middleware"
	"github.com/iliyamo/gymdesk/internal/model"
)

// ProspectHandler serves the landing page capture endpoint and the
// back-office prospect views.
type ProspectHandler struct {
	Prospects  ProspectStore
	Conversion ConversionService
	Audit      AuditRecorder
}

func NewProspectHandler(p ProspectStore, conv ConversionService, audit AuditRecorder) *ProspectHandler {
	return &ProspectHandler{Prospects: p, Conversion: conv, Audit: audit}
}

// Capture handles the public POST /v1/prospects.  The response only
// carries the new id.
func (h *ProspectHandler) Capture(c echo.Context) error {
	var in model.NewProspect
	if err := bindValid(c, &in); err != nil {
		return err
	}
	p := &model.Prospect{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		TrainingGoal: strings.TrimSpace(in.TrainingGoal),
		Attribution:  in.Attribution,
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Prospects.Create(ctx, p); err != nil {
		return err
	}
	h.Audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionProspectCreated,
		Description: "Prospect " + displayName(p.Name, p.Email) + " captured",
		EntityType:  model.EntityProspect,
		EntityID:    p.ID,
		EntityName:  displayName(p.Name, p.Email),
		Metadata:    map[string]any{"utmSource": p.UTMSource, "utmCampaign": p.UTMCampaign},
	})
	return created(c, echo.Map{"id": p.ID})
}

// List handles GET /v1/prospects?converted=&search=.
func (h *ProspectHandler) List(c echo.Context) error {
	var (
		f   model.ProspectFilter
		err error
	)
	if f.Converted, err = queryBool(c, "converted"); err != nil {
		return err
	}
	if f.Limit, f.Offset, err = page(c); err != nil {
		return err
	}
	f.Search = c.QueryParam("search")

	ctx, cancel := requestContext(c)
	defer cancel()
	ps, err := h.Prospects.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *ProspectHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Prospects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Update handles PATCH /v1/prospects/:id.
func (h *ProspectHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.ProspectUpdate
	if err := bindValid(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	old, err := h.Prospects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := h.Prospects.Update(ctx, id, in); err != nil {
		return err
	}
	p, err := h.Prospects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, model.LogEntry{
		ActionType:  model.ActionProspectUpdated,
		Description: "Prospect " + displayName(p.Name, p.Email) + " updated",
		PerformedBy: middleware.Actor(c),
		EntityType:  model.EntityProspect,
		EntityID:    p.ID,
		EntityName:  displayName(p.Name, p.Email),
		Changes:     model.Snapshot(prospectFields(old), prospectFields(p)),
	})
	return c.JSON(http.StatusOK, p)
}

// Convert handles POST /v1/prospects/:id/convert.
func (h *ProspectHandler) Convert(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.LeadFromProspect
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Conversion.ProspectToLead(ctx, middleware.Actor(c), id, in)
	if err != nil {
		return err
	}
	return created(c, l)
}

func prospectFields(p *model.Prospect) map[string]any {
	return map[string]any{
		"name":         p.Name,
		"email":        p.Email,
		"phone":        p.Phone,
		"trainingGoal": p.TrainingGoal,
	}
}

// displayName falls back to the email for people who left no name.
func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return email
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/middleware"
	"github.com/iliyamo/gymdesk/internal/model"
)

// PlanHandler serves /v1/membership-plans.
type PlanHandler struct {
	Plans PlanService
}

func NewPlanHandler(p PlanService) *PlanHandler { return &PlanHandler{Plans: p} }

// List handles GET /v1/membership-plans.  Inactive plans are only
// included with ?includeInactive=true.
func (h *PlanHandler) List(c echo.Context) error {
	inactive, err := queryBool(c, "includeInactive")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	plans, err := h.Plans.ListPlans(ctx, inactive != nil && *inactive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *PlanHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Plans.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Create handles POST /v1/membership-plans.
func (h *PlanHandler) Create(c echo.Context) error {
	var in model.NewPlan
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Plans.CreatePlan(ctx, middleware.Actor(c), in)
	if err != nil {
		return err
	}
	return created(c, p)
}

// Update handles PUT/PATCH /v1/membership-plans/:id.  Only the fields
// present in the body change.
func (h *PlanHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.PlanUpdate
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Plans.UpdatePlan(ctx, middleware.Actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

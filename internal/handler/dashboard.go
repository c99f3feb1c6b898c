package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves GET /v1/dashboard.  Sections that failed to
// load are listed in "failed"; the response is still 200.
type DashboardHandler struct {
	Dashboard DashboardService
}

func NewDashboardHandler(d DashboardService) *DashboardHandler { return &DashboardHandler{Dashboard: d} }

func (h *DashboardHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	return c.JSON(http.StatusOK, h.Dashboard.Snapshot(ctx))
}

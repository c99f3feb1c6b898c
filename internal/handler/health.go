package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project

    "github.com/iliyamo/gymdesk/internal/config" // runtime settings exposed to the dashboard
)

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// PublicConfig serves GET /v1/config.  The dashboard reads
// staffProvisioning to decide whether to show the "staff management
// disabled" banner.
func PublicConfig(cfg config.Config) echo.HandlerFunc {
    body := echo.Map{
        "staffProvisioning": cfg.StaffProvisioning(),
        "expiryAlertDays":   cfg.ExpiryAlertDays,
        "env":               cfg.Env,
    }
    return func(c echo.Context) error {
        return c.JSON(http.StatusOK, body)
    }
}

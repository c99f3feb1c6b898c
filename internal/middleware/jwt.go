package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/gymdesk/internal/utils" // access token parsing
)

// Context keys set by JWTAuth.
const (
    CtxStaffID   = "user_id"
    CtxRole      = "role"
    CtxStaffName = "staff_name"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the staff id (uint64), role and display name in the request
// context.  The provided secret must match the one used when issuing
// tokens.  Handlers read the values back through StaffID and Actor.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            // Signature, algorithm and expiry are checked by the parser.
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            id, err := claims.StaffID()
            if err != nil || id == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            c.Set(CtxStaffID, id)
            c.Set(CtxRole, claims.Role)
            c.Set(CtxStaffName, claims.Name)
            return next(c)
        }
    }
}

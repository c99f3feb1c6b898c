package middleware

// identity.go reads back what JWTAuth stored in the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/gymdesk/internal/model"
)

// StaffID returns the authenticated staff id.
func StaffID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxStaffID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated role or "".
func Role(c echo.Context) string {
    r, _ := c.Get(CtxRole).(string)
    return r
}

// Actor is the audit performer for the request.  Unauthenticated
// requests yield nil, which the recorder stores as the system.
func Actor(c echo.Context) *model.Actor {
    id, ok := StaffID(c)
    if !ok {
        return nil
    }
    name, _ := c.Get(CtxStaffName).(string)
    return model.StaffActor(id, name)
}

// userKey identifies the caller for rate limiting: the staff id, or
// "anon" on public routes.
func userKey(c echo.Context) string {
    if id, ok := StaffID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}

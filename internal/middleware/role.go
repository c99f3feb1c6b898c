package middleware

import (
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/gymdesk/internal/model"
)

// RequireRole admits staff whose role is one of roles and answers 403
// otherwise, including when JWTAuth did not run.  The router builds one
// per route from its allow-list; an unknown role there is a programming
// error and panics at startup.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    if len(roles) == 0 {
        panic("middleware: RequireRole needs at least one role")
    }
    allowed := make(map[string]struct{}, len(roles))
    for _, r := range roles {
        if !model.ValidRole(r) {
            panic(fmt.Sprintf("middleware: unknown staff role %q", r))
        }
        allowed[r] = struct{}{}
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if _, ok := allowed[Role(c)]; !ok {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// bindValid binds the JSON body into v and runs its validation tags.
func bindValid(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return errInvalidBody
	}
	return utils.Validate(v)
}

// queryUint reads an optional unsigned query parameter; absent is 0.
func queryUint(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, utils.NewValidationError(name, "must be a positive integer")
	}
	return n, nil
}

// queryInt reads an optional integer query parameter with a default.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, utils.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

// queryBool reads an optional boolean query parameter.  Absent is nil.
func queryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, utils.NewValidationError(name, "must be true or false")
	}
	return &b, nil
}

// queryDate reads an optional calendar date.
func queryDate(c echo.Context, name string) (*model.Date, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, utils.NewValidationError(name, "must be a date (YYYY-MM-DD)")
	}
	return &d, nil
}

// page reads limit/offset.
func page(c echo.Context) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(c, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func created(c echo.Context, v any) error { return c.JSON(http.StatusCreated, v) }

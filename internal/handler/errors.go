package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/iliyamo/gymdesk/internal/repository"
	"github.com/iliyamo/gymdesk/internal/service"
	"github.com/iliyamo/gymdesk/internal/utils"
)

var (
	errInvalidBody  = echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	errInvalidID    = echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
)

// HTTPErrorHandler turns the errors returned by handlers into JSON
// responses.  Workflow sentinels keep their meaning across the wrapping
// done in the service layer, so the mapping looks at the whole chain.
// Unexpected errors are logged and answered with a bare 500.
func HTTPErrorHandler(lg *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, body := errorResponse(err)
		if code == http.StatusInternalServerError {
			lg.Errorf("%s %s: %+v", c.Request().Method, c.Request().URL.Path, err)
		}
		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			lg.Errorf("writing error response: %v", err)
		}
	}
}

func errorResponse(err error) (int, echo.Map) {
	var (
		he  *echo.HTTPError
		ve  *utils.ValidationError
		pnf *service.PlanNotFoundError
	)
	switch {
	case errors.As(err, &he):
		if inner, ok := he.Internal.(*echo.HTTPError); ok {
			he = inner
		}
		if msg, ok := he.Message.(string); ok {
			return he.Code, echo.Map{"error": msg}
		}
		return he.Code, echo.Map{"error": http.StatusText(he.Code)}
	case errors.As(err, &ve):
		body := echo.Map{"error": ve.Error()}
		if len(ve.Fields) > 0 {
			body["fields"] = ve.FieldMap()
		}
		return http.StatusBadRequest, body
	case errors.As(err, &pnf):
		return http.StatusUnprocessableEntity, echo.Map{"error": pnf.Error(), "membershipType": pnf.Ref.String()}
	case errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrDurationImmutable),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrPlanRetired):
		return http.StatusUnprocessableEntity, echo.Map{"error": errors.Cause(err).Error()}
	case errors.Is(err, service.ErrAlreadyConverted):
		return http.StatusConflict, echo.Map{"error": "already converted"}
	case errors.Is(err, repository.ErrEmailExists):
		return http.StatusConflict, echo.Map{"error": "email already exists"}
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, echo.Map{"error": "conflict"}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, echo.Map{"error": "not found"}
	case errors.Is(err, service.ErrProvisioningClosed):
		return http.StatusServiceUnavailable, echo.Map{"error": service.ErrProvisioningClosed.Error()}
	}
	return http.StatusInternalServerError, echo.Map{"error": http.StatusText(http.StatusInternalServerError)}
}

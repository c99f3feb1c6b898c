package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/model"
)

// LogHandler serves the audit log: GET /v1/logs with at most one of
// userId, membershipId, performedBy or actionType.  No filter returns
// the most recent activity.
type LogHandler struct {
	Logs AuditQueries
}

func NewLogHandler(q AuditQueries) *LogHandler { return &LogHandler{Logs: q} }

func (h *LogHandler) List(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	userID, err := queryUint(c, "userId")
	if err != nil {
		return err
	}
	membershipID, err := queryUint(c, "membershipId")
	if err != nil {
		return err
	}
	performer, err := queryUint(c, "performedBy")
	if err != nil {
		return err
	}
	action := model.ActionType(c.QueryParam("actionType"))

	ctx, cancel := requestContext(c)
	defer cancel()

	var rows []model.LogRow
	switch {
	case userID != 0:
		rows, err = h.Logs.ByUser(ctx, userID, limit)
	case membershipID != 0:
		rows, err = h.Logs.ByMembership(ctx, membershipID, limit)
	case performer != 0:
		rows, err = h.Logs.ByPerformer(ctx, performer, limit)
	case action != "":
		rows, err = h.Logs.ByActionType(ctx, action, limit)
	default:
		rows, err = h.Logs.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

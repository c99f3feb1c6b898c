package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/middleware"
	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/utils"
)

// MemberHandler serves /v1/users, the paying members.  Membership
// fields are read only here; they follow the ledger.
type MemberHandler struct {
	Members    MemberStore
	Ledger     LedgerService
	Conversion ConversionService
	Logs       AuditQueries
	Audit      AuditRecorder
}

func NewMemberHandler(members MemberStore, ledger LedgerService, conv ConversionService, logs AuditQueries, audit AuditRecorder) *MemberHandler {
	return &MemberHandler{Members: members, Ledger: ledger, Conversion: conv, Logs: logs, Audit: audit}
}

// Create handles POST /v1/users: direct enrolment, optionally with a
// first membership.
func (h *MemberHandler) Create(c echo.Context) error {
	var in model.NewMember
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Ledger.EnrollMember(ctx, middleware.Actor(c), in)
	if err != nil {
		return err
	}
	return created(c, e)
}

// List handles GET /v1/users?status=&sellerId=&search=.
func (h *MemberHandler) List(c echo.Context) error {
	var (
		f   model.MemberFilter
		err error
	)
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := model.ParseMemberStatus(raw)
		if !ok {
			return utils.NewValidationError("status", "unknown member status")
		}
		f.Status = st
	}
	if f.SellerID, err = queryUint(c, "sellerId"); err != nil {
		return err
	}
	if f.Limit, f.Offset, err = page(c); err != nil {
		return err
	}
	f.Search = c.QueryParam("search")

	ctx, cancel := requestContext(c)
	defer cancel()
	ms, err := h.Members.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ms)
}

func (h *MemberHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// Update handles PATCH /v1/users/:id.
func (h *MemberHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.MemberUpdate
	if err := bindValid(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Members.Update(ctx, id, in); err != nil {
		return err
	}
	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, model.LogEntry{
		ActionType:    model.ActionUserUpdated,
		Description:   "Member " + m.Name + " updated",
		PerformedBy:   middleware.Actor(c),
		EntityType:    model.EntityUser,
		EntityID:      m.ID,
		EntityName:    m.Name,
		RelatedUserID: &m.ID,
	})
	return c.JSON(http.StatusOK, m)
}

// Status handles PATCH /v1/users/:id/status.
func (h *MemberHandler) Status(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in model.StatusChange
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Conversion.ChangeMemberStatus(ctx, middleware.Actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// Activity handles GET /v1/users/:id/activity, the member's audit
// timeline.
func (h *MemberHandler) Activity(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Members.GetByID(ctx, id); err != nil {
		return err
	}
	rows, err := h.Logs.ByUser(ctx, id, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

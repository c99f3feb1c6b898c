package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gymdesk/internal/middleware"
	"github.com/iliyamo/gymdesk/internal/model"
)

// PaymentHandler exposes the payment recorder.  Payments are append
// only; there is no update or delete route.
type PaymentHandler struct {
	Payments PaymentService
}

func NewPaymentHandler(p PaymentService) *PaymentHandler { return &PaymentHandler{Payments: p} }

// Record handles POST /v1/payments.
func (h *PaymentHandler) Record(c echo.Context) error {
	var in model.NewPayment
	if err := c.Bind(&in); err != nil {
		return errInvalidBody
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Payments.RecordPayment(ctx, middleware.Actor(c), in)
	if err != nil {
		return err
	}
	return created(c, p)
}

// List handles GET /v1/payments?userId=&membershipId=&from=&to=.
func (h *PaymentHandler) List(c echo.Context) error {
	f, err := paymentFilter(c)
	if err != nil {
		return err
	}
	if f.UserID, err = queryUint(c, "userId"); err != nil {
		return err
	}
	return h.list(c, f)
}

// ForMember handles GET /v1/users/:id/payments.
func (h *PaymentHandler) ForMember(c echo.Context) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	f, err := paymentFilter(c)
	if err != nil {
		return err
	}
	f.UserID = userID
	return h.list(c, f)
}

func (h *PaymentHandler) list(c echo.Context, f model.PaymentFilter) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	ps, err := h.Payments.ListPayments(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ps)
}

// Revenue handles GET /v1/payments/revenue?from=&to=.  Missing bounds
// default to the current month to date.
func (h *PaymentHandler) Revenue(c echo.Context) error {
	from, to := h.Payments.MonthToDate()
	if d, err := queryDate(c, "from"); err != nil {
		return err
	} else if d != nil {
		from = *d
	}
	if d, err := queryDate(c, "to"); err != nil {
		return err
	} else if d != nil {
		to = *d
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Payments.RevenueStats(ctx, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func paymentFilter(c echo.Context) (model.PaymentFilter, error) {
	var (
		f   model.PaymentFilter
		err error
	)
	if f.MembershipID, err = queryUint(c, "membershipId"); err != nil {
		return f, err
	}
	from, err := queryDate(c, "from")
	if err != nil {
		return f, err
	}
	if from != nil {
		f.From = &from.Time
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return f, err
	}
	if to != nil {
		end := to.AddDate(0, 0, 1).Add(-1)
		f.To = &end
	}
	if f.Limit, f.Offset, err = page(c); err != nil {
		return f, err
	}
	return f, nil
}

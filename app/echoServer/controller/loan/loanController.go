package loan

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"libcirc/app/echoServer/jwtx"
	"libcirc/fault"
	loansvc "libcirc/service/loan"
)

type Controller struct {
	Svc loansvc.Service
	Log *slog.Logger
}

// GET /v1/loans/overdue?as_of=2024-01-15
// as_of defaults to today; passing it makes the listing reproducible.
func (h *Controller) Overdue(c echo.Context) error {
	asOf := time.Now().UTC()
	if s := c.QueryParam("as_of"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "as_of must be YYYY-MM-DD"})
		}
		asOf = t
	}

	rows, err := h.Svc.Overdue(c.Request().Context(), asOf)
	if err != nil {
		h.Log.Error("overdue list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"as_of": asOf.Format("2006-01-02"), "data": rows})
}

// POST /v1/loans/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	l, err := h.Svc.Return(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("loan return", "loan_id", id, "err", err)
		switch fault.Code(err) {
		case fault.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
		case fault.ErrState:
			return c.JSON(http.StatusConflict, echo.Map{"message": "loan is already returned"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	staff, _ := jwtx.StaffFromContext(c)
	h.Log.Info("loan returned at desk", "loan_id", id, "by", staff)
	return c.JSON(http.StatusOK, l)
}

// GET /v1/loans/orphans
// Reconciliation read: open loans whose reservation never reached
// APPROVED, the leftover of a half-applied approval.
func (h *Controller) Orphans(c echo.Context) error {
	rows, err := h.Svc.Orphans(c.Request().Context())
	if err != nil {
		h.Log.Error("orphan list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

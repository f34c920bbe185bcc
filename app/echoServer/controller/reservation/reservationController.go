package reservation

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"libcirc/app/echoServer/jwtx"
	"libcirc/fault"
	"libcirc/model"
	rsvc "libcirc/service/reservation"
)

type Controller struct {
	Svc rsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/reservations
func (h *Controller) Create(c echo.Context) error {
	var req CreateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	var on *time.Time
	if req.Date != "" {
		t, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "date must be YYYY-MM-DD"})
		}
		on = &t
	}

	res, err := h.Svc.Create(c.Request().Context(), req.PersonID, req.BookID, on)
	if err != nil {
		h.Log.Error("reservation create", "err", err)
		switch fault.Code(err) {
		case fault.ErrValidation:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		case fault.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"message": "a pending reservation already exists for this person and book"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, res)
}

// GET /v1/reservations?status=PENDING
func (h *Controller) List(c echo.Context) error {
	status := model.ReservationStatus(c.QueryParam("status"))
	if status == "" {
		status = model.ReservationPending
	}
	switch status {
	case model.ReservationPending, model.ReservationApproved, model.ReservationRejected:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "unknown status"})
	}

	out, err := h.Svc.List(c.Request().Context(), status)
	if err != nil {
		h.Log.Error("reservation list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// POST /v1/reservations/:id/approve
func (h *Controller) Approve(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	loan, err := h.Svc.Approve(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("reservation approve", "reservation_id", id, "err", err)
		switch fault.Code(err) {
		case fault.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reservation not found"})
		case fault.ErrState:
			return c.JSON(http.StatusConflict, echo.Map{"message": "reservation is not pending"})
		case fault.ErrNoCopyAvailable:
			return c.JSON(http.StatusConflict, echo.Map{"message": "no copy available for this book"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	staff, _ := jwtx.StaffFromContext(c)
	h.Log.Info("reservation approved at desk",
		"reservation_id", id, "loan_id", loan.ID, "by", staff)
	return c.JSON(http.StatusCreated, loan)
}

// POST /v1/reservations/:id/reject
func (h *Controller) Reject(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	if err := h.Svc.Reject(c.Request().Context(), id); err != nil {
		h.Log.Error("reservation reject", "reservation_id", id, "err", err)
		switch fault.Code(err) {
		case fault.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reservation not found"})
		case fault.ErrState:
			return c.JSON(http.StatusConflict, echo.Map{"message": "reservation is not pending"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rejected"})
}

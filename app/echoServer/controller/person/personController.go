package person

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"libcirc/fault"
	catalogsvc "libcirc/service/catalog"
	loansvc "libcirc/service/loan"
)

type Controller struct {
	Svc   catalogsvc.Service
	Loans loansvc.Service
	V     *validator.Validate
	Log   *slog.Logger
}

type RegisterPersonReq struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// POST /v1/persons
func (h *Controller) Register(c echo.Context) error {
	var req RegisterPersonReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	p, err := h.Svc.RegisterPerson(c.Request().Context(), req.Name, req.Email)
	if err != nil {
		h.Log.Error("person register", "err", err)
		if fault.Code(err) == fault.ErrValidation {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, p)
}

// GET /v1/persons
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.ListPersons(c.Request().Context())
	if err != nil {
		h.Log.Error("person list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/persons/:id/loans
func (h *Controller) LoanHistory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Loans.ByPerson(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("person loans", "person_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

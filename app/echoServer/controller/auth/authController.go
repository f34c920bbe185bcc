package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"libcirc/util/hash"
	jwtutil "libcirc/util/jwt"
)

// Controller signs in staff against config-seeded credentials. Member
// identity management is not this service's business; staff operate the
// circulation desk.
type Controller struct {
	StaffUsername     string
	StaffPasswordHash string
	JWTSecret         string
	V                 *validator.Validate
	Log               *slog.Logger
}

type LoginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /v1/auth/login
func (h *Controller) Login(c echo.Context) error {
	var req LoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	if req.Username != h.StaffUsername || !hash.Check(h.StaffPasswordHash, req.Password) {
		h.Log.Warn("staff login rejected", "username", req.Username, "ip", c.RealIP())
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
	}

	token, err := jwtutil.Issue(h.JWTSecret, req.Username, "staff", 24*time.Hour)
	if err != nil {
		h.Log.Error("token issue failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

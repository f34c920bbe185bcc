package report

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	reportsvc "libcirc/service/report"
)

type Controller struct {
	Svc reportsvc.Service
	Log *slog.Logger
}

// GET /v1/admin/metrics
func (h *Controller) Metrics(c echo.Context) error {
	m, err := h.Svc.Snapshot(c.Request().Context(), time.Now().UTC())
	if err != nil {
		h.Log.Error("metrics", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, m)
}

package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"loan-tracker/internal/usecase/analytics"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsHandler struct {
	uc  *analytics.Usecase
	log logrus.FieldLogger
}

func NewAnalyticsHandler(uc *analytics.Usecase, log logrus.FieldLogger) *AnalyticsHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AnalyticsHandler{uc: uc, log: log}
}

// parseNow reads the optional ?now= reference time (RFC3339 or YYYY-MM-DD).
func parseNow(c echo.Context) (time.Time, bool) {
	raw := c.QueryParam("now")
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *AnalyticsHandler) Snapshot(c echo.Context) error {
	now, ok := parseNow(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "now must be RFC3339 or YYYY-MM-DD"})
	}
	s, err := h.uc.Snapshot(c.Request().Context(), now)
	if err != nil {
		return writeError(c, h.log, "Snapshot", err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *AnalyticsHandler) Latest(c echo.Context) error {
	s, err := h.uc.Latest(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, "Latest", err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *AnalyticsHandler) Report(c echo.Context) error {
	now, ok := parseNow(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "now must be RFC3339 or YYYY-MM-DD"})
	}
	b, err := h.uc.Report(c.Request().Context(), now)
	if err != nil {
		return writeError(c, h.log, "Report", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="loan-analytics.xlsx"`)
	return c.Blob(http.StatusOK, xlsxMIME, b)
}

func (h *AnalyticsHandler) Stats(c echo.Context) error {
	st, err := h.uc.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, "Stats", err)
	}
	return c.JSON(http.StatusOK, st)
}

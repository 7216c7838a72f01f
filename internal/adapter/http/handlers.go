package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthCheck pings one backing dependency.
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Handler struct {
	checks []HealthCheck
}

func NewHandler(checks ...HealthCheck) *Handler { return &Handler{checks: checks} }

// Health reports "ok", or 503 "degraded" when any check fails.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	code, status := http.StatusOK, "ok"
	results := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.Probe(ctx); err != nil {
			results[chk.Name] = err.Error()
			code, status = http.StatusServiceUnavailable, "degraded"
			continue
		}
		results[chk.Name] = "ok"
	}

	body := map[string]any{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if len(results) > 0 {
		body["checks"] = results
	}
	return c.JSON(code, body)
}

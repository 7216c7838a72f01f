package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"loan-tracker/internal/adapter/middleware"
	"loan-tracker/internal/usecase/analytics"
	"loan-tracker/internal/usecase/loan"
	"loan-tracker/internal/usecase/notification"
)

type Deps struct {
	Loans         *loan.Usecase
	Analytics     *analytics.Usecase
	Notifications *notification.Usecase

	JWTSecret []byte
	// Redis enables request idempotency on mutating routes; nil disables it.
	Redis          *redis.Client
	IdempotencyTTL time.Duration
	Log            logrus.FieldLogger

	HealthChecks []HealthCheck
}

// Register mounts /health and the authenticated /api tree on e.
func Register(e *echo.Echo, d Deps) {
	if e.Validator == nil {
		e.Validator = NewValidator()
	}
	e.GET("/health", NewHandler(d.HealthChecks...).Health)

	mw := []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret)}
	if d.Redis != nil {
		mw = append(mw, middleware.IdempotencyMiddleware(d.Redis, d.IdempotencyTTL, d.Log))
	}
	api := e.Group("/api", mw...)

	lh := NewLoanHandler(d.Loans, d.Log)
	api.POST("/loans", lh.Submit)
	api.GET("/loans/mine", lh.ListMine)
	api.GET("/loans/:loan_id", lh.Get)
	api.DELETE("/loans/:loan_id", lh.Withdraw)
	api.POST("/loans/:loan_id/process", lh.Decide, middleware.RequireAdmin)
	api.POST("/loans/:loan_id/repayment", lh.RecordRepayment, middleware.RequireAdmin)

	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.GET("/loans", lh.List)
	if d.Analytics != nil {
		ah := NewAnalyticsHandler(d.Analytics, d.Log)
		admin.GET("/analytics", ah.Snapshot)
		admin.GET("/analytics/latest", ah.Latest)
		admin.GET("/analytics/report.xlsx", ah.Report)
		admin.GET("/stats", ah.Stats)
	}

	if d.Notifications != nil {
		nh := NewNotificationHandler(d.Notifications, d.Log)
		api.GET("/notifications", nh.List)
		api.POST("/notifications/read", nh.MarkRead)
		api.GET("/notifications/unread/count", nh.UnreadCount)
	}
}

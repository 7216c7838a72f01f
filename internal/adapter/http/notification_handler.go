package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"loan-tracker/internal/adapter/middleware"
	"loan-tracker/internal/usecase/notification"
)

type NotificationHandler struct {
	uc  *notification.Usecase
	log logrus.FieldLogger
}

func NewNotificationHandler(uc *notification.Usecase, log logrus.FieldLogger) *NotificationHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NotificationHandler{uc: uc, log: log}
}

type markReadReq struct {
	IDs []string `json:"notification_ids" validate:"required,min=1,max=100,dive,hex32"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	var q struct {
		Limit int `query:"limit"`
	}
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
	}
	out, err := h.uc.List(c.Request().Context(), who, q.Limit)
	if err != nil {
		return writeError(c, h.log, "ListNotifications", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	var req markReadReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	n, err := h.uc.MarkRead(c.Request().Context(), who, req.IDs)
	if err != nil {
		return writeError(c, h.log, "MarkRead", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Notifications marked as read", "updated": n})
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	n, err := h.uc.UnreadCount(c.Request().Context(), who)
	if err != nil {
		return writeError(c, h.log, "UnreadCount", err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": n})
}

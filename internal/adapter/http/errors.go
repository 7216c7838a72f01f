package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/infrastructure/logging"
)

// writeError maps engine errors onto HTTP. Anything unrecognised is a 500 and is logged.
func writeError(c echo.Context, log logrus.FieldLogger, funcName string, err error) error {
	var (
		ve *loan.ValidationError
		se *loan.InvalidStateError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: ve.Field, Message: ve.Message}},
		})
	case errors.Is(err, loan.ErrValidation):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.As(err, &se):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: se.Error(), Status: string(se.Status)})
	case errors.Is(err, loan.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
	case errors.Is(err, loan.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, loan.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "concurrent update, re-read and retry", Retryable: true})
	}
	logging.LogError(log, "http", funcName, c.Path(), nil, err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bindAndValidate reports ok=false after it has already written the 400/422 response.
func bindAndValidate(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	return true, nil
}

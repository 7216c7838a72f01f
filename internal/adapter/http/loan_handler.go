package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"loan-tracker/internal/adapter/middleware"
	domain "loan-tracker/internal/domain/loan"
	"loan-tracker/internal/usecase/loan"
)

// conflictRetries bounds how often a decide or repayment is re-run after losing a race.
const conflictRetries = 3

type LoanHandler struct {
	uc  *loan.Usecase
	log logrus.FieldLogger
}

func NewLoanHandler(uc *loan.Usecase, log logrus.FieldLogger) *LoanHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LoanHandler{uc: uc, log: log}
}

type submitLoanReq struct {
	FullName          string          `json:"full_name" validate:"required,max=255"`
	ContactEmail      string          `json:"contact_email" validate:"omitempty,email,max=255"`
	Principal         decimal.Decimal `json:"principal" validate:"required,gt=0,dec2"`
	TenureMonths      int             `json:"tenure_months" validate:"required"`
	Purpose           string          `json:"purpose" validate:"required"`
	EmploymentAddress string          `json:"employment_address" validate:"required"`
}

type decideReq struct {
	Action string `json:"action" validate:"required"`
	Notes  string `json:"notes" validate:"max=2000"`
}

type repaymentReq struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0,dec2"`
}

type listReq struct {
	Status string `query:"status"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

func caller401(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
}

func (h *LoanHandler) Submit(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	var req submitLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Submit(c.Request().Context(), who, loan.SubmitInput(req))
	if err != nil {
		return writeError(c, h.log, "Submit", err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) ListMine(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	out, err := h.uc.ListOwn(c.Request().Context(), who)
	if err != nil {
		return writeError(c, h.log, "ListMine", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) Get(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	dto, err := h.uc.Get(c.Request().Context(), who, c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, "Get", err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Withdraw(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	if err := h.uc.Withdraw(c.Request().Context(), who, c.Param("loan_id")); err != nil {
		return writeError(c, h.log, "Withdraw", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "loan withdrawn"})
}

func (h *LoanHandler) Decide(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	var req decideReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	loanID := c.Param("loan_id")
	dto, err := loan.WithRetry(c.Request().Context(), conflictRetries, func(ctx context.Context) (*loan.LoanDTO, error) {
		return h.uc.Decide(ctx, who, loanID, loan.DecideInput{Action: domain.Action(req.Action), Notes: req.Notes})
	})
	if err != nil {
		return writeError(c, h.log, "Decide", err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) RecordRepayment(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	var req repaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	loanID := c.Param("loan_id")
	dto, err := loan.WithRetry(c.Request().Context(), conflictRetries, func(ctx context.Context) (*loan.LoanDTO, error) {
		return h.uc.RecordRepayment(ctx, who, loanID, req.Amount)
	})
	if err != nil {
		return writeError(c, h.log, "RecordRepayment", err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) List(c echo.Context) error {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return caller401(c)
	}
	var req listReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
	}
	page, err := h.uc.List(c.Request().Context(), who, loan.ListInput{Status: req.Status, Page: req.Page, PageSize: req.Limit})
	if err != nil {
		return writeError(c, h.log, "List", err)
	}
	return c.JSON(http.StatusOK, page)
}

package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/univlib/lending-system/internal/api/metrics"
	"github.com/univlib/lending-system/internal/core/ports"
)

const headerIdempotencyKey = "Idempotency-Key"

// LoanHandler handles HTTP requests for loan operations.
type LoanHandler struct {
	service ports.LendingService
}

func NewLoanHandler(service ports.LendingService) *LoanHandler {
	return &LoanHandler{service: service}
}

type loanOperation func(ctx context.Context, in ports.LoanInput) (*ports.LoanResult, error)

// Borrow handles POST /v1/loans.
//
// @Summary      Borrow an item
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        X-Patron-ID      header    int          true   "Acting patron id"
// @Param        Idempotency-Key  header    string       false  "Idempotency key to prevent duplicate loans"
// @Param        body             body      loanRequest  true   "Borrower and item"
// @Success      201              {object}  loanResultResponse
// @Success      200              {object}  loanResultResponse  "Replayed request"
// @Failure      400              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/loans [post]
func (h *LoanHandler) Borrow(c echo.Context) error {
	return h.handle(c, "borrow", h.service.Borrow, http.StatusCreated)
}

// Return handles POST /v1/loans/return.
//
// @Summary      Return a borrowed item
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        X-Patron-ID      header    int          true   "Acting patron id"
// @Param        Idempotency-Key  header    string       false  "Idempotency key to prevent duplicate returns"
// @Param        body             body      loanRequest  true   "Borrower and item"
// @Success      200              {object}  loanResultResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse  "Idempotency key still in flight"
// @Failure      422              {object}  errorResponse  "Idempotency key used for another item"
// @Router       /v1/loans/return [post]
func (h *LoanHandler) Return(c echo.Context) error {
	return h.handle(c, "return", h.service.Return, http.StatusOK)
}

// Renew handles POST /v1/loans/renew.
//
// @Summary      Renew an open loan
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        X-Patron-ID  header    int          true  "Acting patron id"
// @Param        body         body      loanRequest  true  "Borrower and item"
// @Success      200          {object}  loanResultResponse
// @Failure      404          {object}  errorResponse
// @Failure      422          {object}  errorResponse
// @Router       /v1/loans/renew [post]
func (h *LoanHandler) Renew(c echo.Context) error {
	return h.handle(c, "renew", h.service.Renew, http.StatusOK)
}

func (h *LoanHandler) handle(c echo.Context, op string, run loanOperation, created int) error {
	var req loanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := requireSelfOrLibrarian(c, req.PatronID); err != nil {
		return err
	}

	result, err := run(c.Request().Context(), ports.LoanInput{
		PatronID:       req.PatronID,
		ItemID:         req.ItemID,
		IdempotencyKey: c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		metrics.ObserveRejection(op, err)
		return err
	}

	status := created
	if result.AlreadyExisted {
		status = http.StatusOK
	}
	return c.JSON(status, loanResultResponse{
		Loan:           toLoanResponse(result.Loan),
		AlreadyExisted: result.AlreadyExisted,
	})
}

// Ledger handles GET /v1/loans.
//
// @Summary      List every open loan
// @Tags         loans
// @Produce      json
// @Param        X-Patron-ID  header    int  true  "Acting patron id (librarian)"
// @Success      200          {object}  loanListResponse
// @Failure      403          {object}  errorResponse
// @Router       /v1/loans [get]
func (h *LoanHandler) Ledger(c echo.Context) error {
	return c.JSON(http.StatusOK, toLoanList(h.service.Ledger(c.Request().Context())))
}

// Overdue handles GET /v1/loans/overdue.
//
// @Summary      List open loans past their due date
// @Tags         loans
// @Produce      json
// @Param        X-Patron-ID  header    int  true  "Acting patron id (librarian)"
// @Success      200          {object}  loanListResponse
// @Failure      403          {object}  errorResponse
// @Router       /v1/loans/overdue [get]
func (h *LoanHandler) Overdue(c echo.Context) error {
	return c.JSON(http.StatusOK, toLoanList(h.service.OverdueLoans(c.Request().Context())))
}

// Report handles GET /v1/loans/report.
//
// @Summary      Plain-text loan report with reminders
// @Tags         loans
// @Produce      plain
// @Param        X-Patron-ID  header    int  true  "Acting patron id (librarian)"
// @Success      200          {string}  string
// @Failure      403          {object}  errorResponse
// @Router       /v1/loans/report [get]
func (h *LoanHandler) Report(c echo.Context) error {
	return c.String(http.StatusOK, h.service.LoanReport(c.Request().Context()))
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/univlib/lending-system/internal/core/ports"
)

// PatronHandler handles HTTP requests for the patron registry.
type PatronHandler struct {
	service ports.LendingService
}

func NewPatronHandler(service ports.LendingService) *PatronHandler {
	return &PatronHandler{service: service}
}

// Get handles GET /v1/patrons/:id.
//
// @Summary      Get a patron
// @Tags         patrons
// @Produce      json
// @Param        X-Patron-ID  header    int  true  "Acting patron id"
// @Param        id           path      int  true  "Patron id"
// @Success      200          {object}  patronResponse
// @Failure      404          {object}  errorResponse
// @Router       /v1/patrons/{id} [get]
func (h *PatronHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.service.GetPatron(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPatronResponse(p))
}

// Register handles POST /v1/patrons.
//
// @Summary      Register a patron
// @Tags         patrons
// @Accept       json
// @Produce      json
// @Param        X-Patron-ID  header    int                    true  "Acting patron id (librarian)"
// @Param        body         body      registerPatronRequest  true  "Patron"
// @Success      201          {object}  patronResponse
// @Failure      400          {object}  errorResponse
// @Failure      409          {object}  errorResponse
// @Failure      422          {object}  errorResponse
// @Router       /v1/patrons [post]
func (h *PatronHandler) Register(c echo.Context) error {
	var req registerPatronRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.service.RegisterPatron(c.Request().Context(), toRegisterInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPatronResponse(p))
}

// Delete handles DELETE /v1/patrons/:id.
//
// @Summary      Remove a patron
// @Tags         patrons
// @Param        X-Patron-ID  header  int  true  "Acting patron id (librarian)"
// @Param        id           path    int  true  "Patron id"
// @Success      204
// @Failure      404          {object}  errorResponse
// @Failure      409          {object}  errorResponse
// @Router       /v1/patrons/{id} [delete]
func (h *PatronHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.RemovePatron(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignGuardian handles POST /v1/patrons/:id/guardian.
//
// @Summary      Link a child to an adult guardian
// @Tags         patrons
// @Accept       json
// @Produce      json
// @Param        X-Patron-ID  header    int                    true  "Acting patron id (librarian)"
// @Param        id           path      int                    true  "Child patron id"
// @Param        body         body      assignGuardianRequest  true  "Guardian"
// @Success      200          {object}  patronResponse
// @Failure      404          {object}  errorResponse
// @Failure      422          {object}  errorResponse
// @Router       /v1/patrons/{id}/guardian [post]
func (h *PatronHandler) AssignGuardian(c echo.Context) error {
	childID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req assignGuardianRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if err := h.service.AssignGuardian(ctx, req.GuardianID, childID); err != nil {
		return err
	}
	p, err := h.service.GetPatron(ctx, childID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPatronResponse(p))
}

// Loans handles GET /v1/patrons/:id/loans.
//
// @Summary      List a patron's open loans with reminders
// @Tags         patrons
// @Produce      json
// @Param        X-Patron-ID  header    int  true  "Acting patron id"
// @Param        id           path      int  true  "Patron id"
// @Success      200          {object}  loanListResponse
// @Failure      403          {object}  errorResponse
// @Failure      404          {object}  errorResponse
// @Router       /v1/patrons/{id}/loans [get]
func (h *PatronHandler) Loans(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := requireSelfOrLibrarian(c, id); err != nil {
		return err
	}
	views, err := h.service.PatronLoans(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanList(views))
}

// History handles GET /v1/patrons/:id/history.
//
// @Summary      List a patron's recorded loan events
// @Tags         patrons
// @Produce      json
// @Param        X-Patron-ID  header    int  true  "Acting patron id"
// @Param        id           path      int  true  "Patron id"
// @Success      200          {object}  historyResponse
// @Failure      403          {object}  errorResponse
// @Failure      404          {object}  errorResponse
// @Router       /v1/patrons/{id}/history [get]
func (h *PatronHandler) History(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := requireSelfOrLibrarian(c, id); err != nil {
		return err
	}
	events, err := h.service.PatronHistory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHistoryResponse(id, events))
}

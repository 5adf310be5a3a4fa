package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/univlib/lending-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps engine
// errors to status codes and renders {"error": "<message>"}. Unexpected
// errors are logged and answered with a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPolicyViolation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrDuplicateItem),
		errors.Is(err, domain.ErrDuplicatePatron),
		errors.Is(err, domain.ErrItemOnLoan),
		errors.Is(err, domain.ErrPatronHasLoans),
		errors.Is(err, domain.ErrRequestInFlight):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUnknownRole),
		errors.Is(err, domain.ErrUnknownItemKind):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidGuardian),
		errors.Is(err, domain.ErrInvalidPolicy):
		return http.StatusUnprocessableEntity, err.Error()
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/univlib/lending-system/internal/core/domain"
)

// HeaderPatronID names the acting patron. It identifies the caller; it does
// not authenticate them.
const HeaderPatronID = "X-Patron-ID"

// Context keys set by Identify.
const (
	ContextKeyPatronID = "patron_id"
	ContextKeyRole     = "role"
)

// RoleResolver looks up the role of a registered patron.
type RoleResolver interface {
	PatronRole(ctx context.Context, id int) (domain.Role, error)
}

// Identify resolves the X-Patron-ID header through resolver and injects
// "patron_id" (int) and "role" (domain.Role) into the context.
func Identify(resolver RoleResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(HeaderPatronID))
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderPatronID+" header")
			}

			id, err := strconv.Atoi(raw)
			if err != nil || id <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+HeaderPatronID+" header")
			}

			role, err := resolver.PatronRole(c.Request().Context(), id)
			if errors.Is(err, domain.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown patron")
			}
			if err != nil {
				return err
			}

			c.Set(ContextKeyPatronID, id)
			c.Set(ContextKeyRole, role)

			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/univlib/lending-system/internal/core/domain"
)

// RequireRole admits patrons whose role, as set by Identify, is one of
// allowed. A request without an identity is rejected with 401, a patron of
// another role with 403.
func RequireRole(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextKeyRole).(domain.Role)
			if !ok || role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing patron identity")
			}
			if !slices.Contains(allowed, role) {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden for role "+string(role))
			}
			return next(c)
		}
	}
}

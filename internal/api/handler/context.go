package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/univlib/lending-system/internal/api/middleware"
	"github.com/univlib/lending-system/internal/core/domain"
)

// ctxPatron extracts the acting patron injected by the Identify middleware.
// A missing role means the middleware did not run; reject with 401.
func ctxPatron(c echo.Context) (patronID int, role domain.Role, err error) {
	role, _ = c.Get(middleware.ContextKeyRole).(domain.Role)
	patronID, _ = c.Get(middleware.ContextKeyPatronID).(int)
	if role == "" || patronID == 0 {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing patron identity")
	}
	return patronID, role, nil
}

// requireSelfOrLibrarian lets librarians act for anyone and everyone else
// only for themselves.
func requireSelfOrLibrarian(c echo.Context, patronID int) error {
	actor, role, err := ctxPatron(c)
	if err != nil {
		return err
	}
	if role != domain.RoleLibrarian && actor != patronID {
		return echo.NewHTTPError(http.StatusForbidden, "patrons may only act on their own loans")
	}
	return nil
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

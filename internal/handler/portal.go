package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// The portal endpoints bootstrap the role-specific dashboards. The
// dashboards themselves live in the web frontend; these handlers only
// confirm the session's identity after the role gate has passed, so the
// client knows which portal to render.

func (h *AuthHandler) StudentHome(c echo.Context) error {
	return portalIdentity(c, "student")
}

func (h *AuthHandler) InstructorHome(c echo.Context) error {
	return portalIdentity(c, "instructor")
}

func (h *AuthHandler) AdminHome(c echo.Context) error {
	return portalIdentity(c, "admin")
}

func portalIdentity(c echo.Context, portal string) error {
	return c.JSON(http.StatusOK, echo.Map{
		"portal":    portal,
		"user_id":   c.Get("user_id"),
		"email":     c.Get("email"),
		"role":      c.Get("role"),
		"full_name": c.Get("full_name"),
	})
}

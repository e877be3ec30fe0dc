package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"   // sentinel comparisons for session verification results
	"net/http" // HTTP status codes for responses

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/smartlearning/auth-service/internal/utils"
)

// SessionAuth returns an Echo middleware that verifies the signed session
// cookie and injects its claims into the request context. The provided
// secret must match the one used when issuing sessions. Protected handlers
// can then read `c.Get("user_id")`, `c.Get("email")`, `c.Get("role")` and
// `c.Get("full_name")`. A missing, tampered or expired session is rejected
// with 401; there is no fallback credential.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(utils.SessionCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			cl, err := utils.ParseSessionToken(secret, cookie.Value)
			if err != nil {
				if errors.Is(err, utils.ErrSessionExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
			}

			// Store the claims in the context. Handlers and downstream
			// middleware read these instead of re-parsing the cookie.
			c.Set("user_id", cl.UserID)
			c.Set("email", cl.Email)
			c.Set("role", cl.Role)
			c.Set("full_name", cl.FullName)
			return next(c)
		}
	}
}

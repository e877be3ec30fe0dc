package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/smartlearning/auth-service/internal/handler"    // handlers implementing the auth endpoints
	"github.com/smartlearning/auth-service/internal/middleware" // session and role enforcement middleware
	"github.com/smartlearning/auth-service/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check, which
// load balancers and monitoring systems use to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and the session-
// protected account routes. Unauthenticated operations live under
// /v1/auth; protected endpoints live under /v1 behind SessionAuth. The
// rateLimit middleware (Redis token bucket) wraps the credential-bearing
// endpoints so password and OTP guessing are throttled; pass nil to skip.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if rateLimit != nil {
		g.Use(rateLimit)
	}
	// Credential submission; either issues a session (trusted device) or
	// emails a login OTP.
	g.POST("/login", a.Login)
	// Registration creates a pending account and emails a verify_email OTP.
	g.POST("/register/student", a.RegisterStudent)
	g.POST("/register/instructor", a.RegisterInstructor)
	// A single verification endpoint serves both registration confirmation
	// and login step-up; the consumed record's purpose decides which.
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/resend-otp", a.ResendOTP)
	// Logout only clears the cookie; sessions are stateless server-side.
	g.POST("/logout", a.Logout)

	// Routes below require a valid session cookie.
	auth := e.Group("/v1")
	auth.Use(middleware.SessionAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.GET("/devices", a.ListDevices)
	auth.DELETE("/devices/:id", a.RevokeDevice)
	auth.DELETE("/devices", a.RevokeAllDevices)
}

// RegisterPortals registers the role-gated portal groups. Each group
// applies SessionAuth followed by a set-membership role check; there is no
// role hierarchy, so an admin is not implicitly a student.
func RegisterPortals(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	student := e.Group("/v1/student")
	student.Use(middleware.SessionAuth(jwtSecret))
	student.Use(middleware.RequireRole(model.RoleStudent))
	student.GET("", a.StudentHome)

	instructor := e.Group("/v1/instructor")
	instructor.Use(middleware.SessionAuth(jwtSecret))
	instructor.Use(middleware.RequireRole(model.RoleInstructor))
	instructor.GET("", a.InstructorHome)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.SessionAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("", a.AdminHome)
}

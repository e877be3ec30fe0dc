package handler

import (
	"context"  // provides context with cancellation for DB calls
	"log"      // server-side logging of internal faults
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/smartlearning/auth-service/internal/apperror"
	"github.com/smartlearning/auth-service/internal/config"
	"github.com/smartlearning/auth-service/internal/model"
	"github.com/smartlearning/auth-service/internal/service"
	"github.com/smartlearning/auth-service/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg  config.Config
	Auth *service.AuthService
}

func NewAuthHandler(cfg config.Config, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

// ----- DTOs -----

type loginReq struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	DeviceToken    string `json:"deviceToken"`
	RememberDevice bool   `json:"rememberDevice"`
	SelectedRole   string `json:"selectedRole"`
}
type registerReq struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}
type verifyOTPReq struct {
	Email          string `json:"email"`
	OTP            string `json:"otp"`
	DeviceToken    string `json:"deviceToken"`
	RememberDevice bool   `json:"rememberDevice"`
}
type resendOTPReq struct {
	Email string `json:"email"`
}

type userPart struct {
	ID       uint64 `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role.String()}
}

// writeError translates service errors into the wire shape. Structured
// errors keep their machine-readable kind and hints; anything else is
// logged with its cause and reported as a generic 500.
func writeError(c echo.Context, err error) error {
	ae := apperror.From(err)
	if ae.Kind == apperror.KindInternal {
		log.Printf("auth: %s %s failed: %v", c.Request().Method, c.Path(), ae)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   string(apperror.KindInternal),
			"message": "internal server error",
		})
	}
	body := echo.Map{
		"error":   string(ae.Kind),
		"message": ae.Message,
	}
	if ae.Action != "" {
		body["action"] = ae.Action
	}
	if ae.WrongRole {
		body["wrongRole"] = true
		if ae.CorrectRole != "" {
			body["correctRole"] = ae.CorrectRole
		}
	}
	return c.JSON(apperror.HTTPStatus(ae.Kind), body)
}

// Login verifies credentials and either issues a session directly (trusted
// device) or sends a login OTP and waits for the verify call.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Login(ctx, service.LoginInput{
		Email:          req.Email,
		Password:       req.Password,
		DeviceToken:    strings.TrimSpace(req.DeviceToken),
		RememberDevice: req.RememberDevice,
		SelectedRole:   req.SelectedRole,
	})
	if err != nil {
		return writeError(c, err)
	}

	if res.SkipOTP {
		c.SetCookie(utils.SessionCookie(res.Token, res.Expires, h.Cfg.CookieSecure))
		return c.JSON(http.StatusOK, echo.Map{
			"message": "login successful",
			"skipOTP": true,
			"user":    toUserPart(res.User),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":        "an OTP has been emailed to you; enter it to finish signing in",
		"skipOTP":        false,
		"deviceToken":    res.DeviceToken,
		"rememberDevice": res.RememberDevice,
	})
}

// VerifyOTP redeems an emailed code (registration confirmation or login
// step-up), optionally remembers the device, and sets the session cookie.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OTP = strings.TrimSpace(req.OTP)
	if req.Email == "" || req.OTP == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/otp required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.VerifyOTP(ctx, service.VerifyOTPInput{
		Email:          req.Email,
		Code:           req.OTP,
		DeviceToken:    strings.TrimSpace(req.DeviceToken),
		RememberDevice: req.RememberDevice,
		DeviceName:     c.Request().UserAgent(),
	})
	if err != nil {
		return writeError(c, err)
	}

	c.SetCookie(utils.SessionCookie(res.Token, res.Expires, h.Cfg.CookieSecure))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "verification successful",
		"user":    toUserPart(res.User),
	})
}

// RegisterStudent creates a pending student account and emails a
// verification code.
func (h *AuthHandler) RegisterStudent(c echo.Context) error {
	return h.register(c, model.RoleStudent)
}

// RegisterInstructor creates a pending instructor account and emails a
// verification code.
func (h *AuthHandler) RegisterInstructor(c echo.Context) error {
	return h.register(c, model.RoleInstructor)
}

func (h *AuthHandler) register(c echo.Context, role model.Role) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Auth.Register(ctx, service.RegisterInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registration successful; check your email for the verification code",
	})
}

// ResendOTP issues a fresh code for the given email.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req resendOTPReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.ResendOTP(ctx, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "a new code has been emailed to you"})
}

// Logout clears the session cookie. Sessions are self-contained, so there
// is nothing to revoke server-side; the old token simply ages out.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(utils.ExpiredSessionCookie(h.Cfg.CookieSecure))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the identity claims of the current session.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":   c.Get("user_id"),
		"email":     c.Get("email"),
		"role":      c.Get("role"),
		"full_name": c.Get("full_name"),
	})
}


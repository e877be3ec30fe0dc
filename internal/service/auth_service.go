// Package service implements the authentication flows: credential
// verification, OTP step-up, trusted-device bypass and session issuance.
// The service talks to storage through small interfaces so tests can run
// against in-memory fakes, and it never constructs its own store handles.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smartlearning/auth-service/internal/apperror"
	"github.com/smartlearning/auth-service/internal/config"
	"github.com/smartlearning/auth-service/internal/model"
	"github.com/smartlearning/auth-service/internal/notifier"
	"github.com/smartlearning/auth-service/internal/repository"
	"github.com/smartlearning/auth-service/internal/utils"
)

// UserStore is the credential-store boundary used by the auth flows.
type UserStore interface {
	Create(ctx context.Context, email, password, fullName string, role model.Role, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Activate(ctx context.Context, id uint64) error
	DeletePendingByEmail(ctx context.Context, email string) (bool, error)
}

// OTPStore issues and atomically consumes one-time passwords.
type OTPStore interface {
	Create(ctx context.Context, userID uint64, code, purpose string, expiresAt time.Time) error
	Consume(ctx context.Context, userID uint64, code string, purposes []string) (string, error)
	DeleteForUser(ctx context.Context, userID uint64) error
}

// DeviceStore is the trusted-device registry boundary.
type DeviceStore interface {
	Lookup(ctx context.Context, userID uint64, token string) (model.TrustedDevice, error)
	Touch(ctx context.Context, deviceID uint64) error
	Upsert(ctx context.Context, userID uint64, token, name string, ttlDays int) (time.Time, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.TrustedDevice, error)
	Revoke(ctx context.Context, userID, deviceID uint64) error
	RevokeAll(ctx context.Context, userID uint64) (int64, error)
}

// AuthService orchestrates login, OTP verification, registration and
// trusted-device management. All dependencies are injected at construction.
type AuthService struct {
	cfg     config.Config
	users   UserStore
	otps    OTPStore
	devices DeviceStore
	mail    notifier.Notifier
	now     func() time.Time
}

func NewAuthService(cfg config.Config, users UserStore, otps OTPStore, devices DeviceStore, mail notifier.Notifier) *AuthService {
	return &AuthService{
		cfg:     cfg,
		users:   users,
		otps:    otps,
		devices: devices,
		mail:    mail,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// LoginInput is the credential submission from the login form. DeviceToken
// is the client-computed opaque fingerprint; SelectedRole is the portal the
// user tried to sign in through, used only for the redirect hint.
type LoginInput struct {
	Email          string
	Password       string
	DeviceToken    string
	RememberDevice bool
	SelectedRole   string
}

// LoginResult is the outcome of a successful Login call. When SkipOTP is
// true the device was trusted and Token carries a signed session; otherwise
// an OTP has been emailed and DeviceToken/RememberDevice are echoed back
// for the follow-up verification call.
type LoginResult struct {
	SkipOTP        bool
	User           model.User
	Token          string
	Expires        time.Time
	DeviceToken    string
	RememberDevice bool
}

// Login runs the credential step of the login state machine. Unknown email
// and wrong password collapse into the same generic error so responses do
// not reveal which field was wrong. A valid trusted device bypasses the
// OTP step entirely; everyone else gets a login OTP by email.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoginResult{}, invalidCredentials()
		}
		return LoginResult{}, apperror.Wrap(apperror.KindInternal, "could not look up user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return LoginResult{}, invalidCredentials()
	}

	// The role itself was resolved from the user record above; the
	// selectedRole check is a UX affordance steering the user to the right
	// portal, not a security boundary.
	if in.SelectedRole != "" {
		requested, ok := model.NormalizeRole(in.SelectedRole)
		if !ok || requested != u.Role {
			return LoginResult{}, roleMismatch(u.Role, in.SelectedRole)
		}
	}

	switch u.Status {
	case model.StatusPending:
		e := apperror.New(apperror.KindAccountPending,
			"account not verified yet; check your email or request a new code")
		e.Action = "resend_otp"
		return LoginResult{}, e
	case model.StatusInactive:
		return LoginResult{}, apperror.New(apperror.KindAccountInactive, "account has been deactivated")
	}

	if in.DeviceToken != "" {
		d, err := s.devices.Lookup(ctx, u.ID, in.DeviceToken)
		switch {
		case err == nil:
			if err := s.devices.Touch(ctx, d.ID); err != nil {
				return LoginResult{}, apperror.Wrap(apperror.KindInternal, "could not update device", err)
			}
			token, exp, err := s.issueSession(u)
			if err != nil {
				return LoginResult{}, err
			}
			return LoginResult{SkipOTP: true, User: u, Token: token, Expires: exp}, nil
		case errors.Is(err, sql.ErrNoRows):
			// Unknown or expired device: fall through to the OTP step.
		default:
			return LoginResult{}, apperror.Wrap(apperror.KindInternal, "could not check device", err)
		}
	}

	if err := s.issueOTP(ctx, u, model.PurposeLogin); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		SkipOTP:        false,
		User:           u,
		DeviceToken:    in.DeviceToken,
		RememberDevice: in.RememberDevice,
	}, nil
}

// VerifyOTPInput is the follow-up call carrying the emailed code.
// DeviceName is the label stored when the user opts into remembering the
// device (typically the User-Agent header).
type VerifyOTPInput struct {
	Email          string
	Code           string
	DeviceToken    string
	RememberDevice bool
	DeviceName     string
}

// SessionResult is a freshly issued session plus the identity it asserts.
type SessionResult struct {
	User    model.User
	Token   string
	Expires time.Time
}

// VerifyOTP redeems a code issued for email verification or login step-up;
// one endpoint serves both flows. Redemption is atomic in the store, so a
// code can succeed at most once. On verify_email success the account flips
// pending -> active. A session is always issued on success.
func (s *AuthService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (SessionResult, error) {
	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionResult{}, apperror.New(apperror.KindNotFound, "user not found")
		}
		return SessionResult{}, apperror.Wrap(apperror.KindInternal, "could not look up user", err)
	}

	purpose, err := s.otps.Consume(ctx, u.ID, in.Code,
		[]string{model.PurposeVerifyEmail, model.PurposeLogin})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOTPExpired):
			return SessionResult{}, apperror.New(apperror.KindExpiredOTP, "the code has expired; request a new one")
		case errors.Is(err, repository.ErrOTPInvalid):
			return SessionResult{}, apperror.New(apperror.KindInvalidOTP, "invalid verification code")
		default:
			return SessionResult{}, apperror.Wrap(apperror.KindInternal, "could not verify code", err)
		}
	}

	if purpose == model.PurposeVerifyEmail {
		if err := s.users.Activate(ctx, u.ID); err != nil {
			return SessionResult{}, apperror.Wrap(apperror.KindInternal, "could not activate account", err)
		}
		u.Status = model.StatusActive
		u.EmailVerified = true
	}

	if in.RememberDevice && in.DeviceToken != "" {
		name := in.DeviceName
		if name == "" {
			name = "Unknown"
		}
		if _, err := s.devices.Upsert(ctx, u.ID, in.DeviceToken, name, s.cfg.DeviceTTLDays); err != nil {
			return SessionResult{}, apperror.Wrap(apperror.KindInternal, "could not remember device", err)
		}
	}

	token, exp, err := s.issueSession(u)
	if err != nil {
		return SessionResult{}, err
	}
	return SessionResult{User: u, Token: token, Expires: exp}, nil
}

func (s *AuthService) issueSession(u model.User) (string, time.Time, error) {
	token, exp, err := utils.NewSessionToken(s.cfg.JWTSecret, u.ID, u.Email, u.Role.String(), u.FullName, s.cfg.SessionTTLDays)
	if err != nil {
		return "", time.Time{}, apperror.Wrap(apperror.KindInternal, "could not issue session", err)
	}
	return token, exp, nil
}

// issueOTP writes a fresh code and then hands the email to the notifier.
// The order matters: the record must be durable before the notification is
// attempted so a failed send never leaves an unreachable code, and a send
// failure still fails the whole request because the user cannot proceed
// without the code.
func (s *AuthService) issueOTP(ctx context.Context, u model.User, purpose string) error {
	code, err := utils.GenerateOTP()
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, "could not generate code", err)
	}
	expires := s.now().Add(time.Duration(s.cfg.OTPTTLMin) * time.Minute)
	if err := s.otps.Create(ctx, u.ID, code, purpose, expires); err != nil {
		return apperror.Wrap(apperror.KindInternal, "could not store code", err)
	}

	subject, body := otpEmail(u.FullName, code, purpose, s.cfg.OTPTTLMin)
	if err := s.mail.Send(ctx, u.Email, subject, body); err != nil {
		return apperror.Wrap(apperror.KindInternal, "could not send verification email", err)
	}
	return nil
}

func otpEmail(fullName, code, purpose string, ttlMin int) (subject, body string) {
	switch purpose {
	case model.PurposeVerifyEmail:
		subject = "Verify your SmartLearning account"
	default:
		subject = "Your SmartLearning login code"
	}
	body = fmt.Sprintf("Hello %s,\n\nYour verification code is: %s\n\nIt expires in %d minutes.\n",
		fullName, code, ttlMin)
	return subject, body
}

func invalidCredentials() *apperror.Error {
	return apperror.New(apperror.KindInvalidCredentials, "email or password is incorrect")
}

func roleMismatch(actual model.Role, requested string) *apperror.Error {
	e := apperror.New(apperror.KindRoleMismatch,
		fmt.Sprintf("this account cannot sign in through the %s portal; use the %s portal instead",
			strings.ToLower(strings.TrimSpace(requested)), actual))
	e.WrongRole = true
	e.CorrectRole = actual.String()
	return e
}

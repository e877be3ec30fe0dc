package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartlearning/auth-service/internal/apperror"
	"github.com/smartlearning/auth-service/internal/config"
	"github.com/smartlearning/auth-service/internal/model"
	"github.com/smartlearning/auth-service/internal/utils"
)

func newTestService(t *testing.T) (*AuthService, *fakeUserStore, *fakeOTPStore, *fakeDeviceStore, *fakeNotifier) {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      "test-secret",
		SessionTTLDays: 7,
		OTPTTLMin:      5,
		DeviceTTLDays:  30,
		BcryptCost:     bcrypt.MinCost,
	}
	users := newFakeUserStore()
	otps := &fakeOTPStore{}
	devices := &fakeDeviceStore{}
	mail := &fakeNotifier{}
	return NewAuthService(cfg, users, otps, devices, mail), users, otps, devices, mail
}

func addUser(t *testing.T, users *fakeUserStore, email, password string, role model.Role, status string, verified bool) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	u := users.add(model.User{
		Email:         email,
		PasswordHash:  hash,
		FullName:      "Test User",
		Role:          role,
		Status:        status,
		EmailVerified: verified,
	})
	return *u
}

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

func codeFromMail(t *testing.T, mail *fakeNotifier) string {
	t.Helper()
	m := mail.last()
	require.NotNil(t, m, "expected an email to have been sent")
	match := codeRe.FindStringSubmatch(m.body)
	require.Len(t, match, 2, "email body should contain a 6-digit code: %q", m.body)
	return match[1]
}

func kindOf(t *testing.T, err error) apperror.Kind {
	t.Helper()
	require.Error(t, err)
	return apperror.From(err).Kind
}

func TestLoginUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	svc, users, _, _, _ := newTestService(t)
	addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)

	_, err1 := svc.Login(context.Background(), LoginInput{Email: "nobody@x.com", Password: "password1"})
	_, err2 := svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "wrong-password"})

	ae1, ae2 := apperror.From(err1), apperror.From(err2)
	assert.Equal(t, apperror.KindInvalidCredentials, ae1.Kind)
	assert.Equal(t, apperror.KindInvalidCredentials, ae2.Kind)
	assert.Equal(t, ae1.Message, ae2.Message, "responses must not reveal which field was wrong")
}

func TestLoginRoleMismatchHint(t *testing.T) {
	svc, users, _, _, _ := newTestService(t)
	addUser(t, users, "s@x.com", "password1", model.RoleStudent, model.StatusActive, true)

	res, err := svc.Login(context.Background(), LoginInput{
		Email: "s@x.com", Password: "password1", SelectedRole: "instructor",
	})
	ae := apperror.From(err)
	assert.Equal(t, apperror.KindRoleMismatch, ae.Kind)
	assert.True(t, ae.WrongRole)
	assert.Equal(t, "student", ae.CorrectRole)
	assert.Empty(t, res.Token, "no session may be issued on role mismatch")
}

func TestLoginRoleSynonymsAccepted(t *testing.T) {
	svc, users, _, _, mail := newTestService(t)
	addUser(t, users, "i@x.com", "password1", model.RoleInstructor, model.StatusActive, true)

	// "lecturer" and "teacher" are portal synonyms for instructor.
	for _, selected := range []string{"instructor", "lecturer", "Teacher"} {
		res, err := svc.Login(context.Background(), LoginInput{
			Email: "i@x.com", Password: "password1", SelectedRole: selected,
		})
		require.NoError(t, err, "selectedRole=%q", selected)
		assert.False(t, res.SkipOTP)
	}
	assert.Len(t, mail.sent, 3)
}

func TestLoginPendingAccount(t *testing.T) {
	svc, users, _, _, _ := newTestService(t)
	addUser(t, users, "p@x.com", "password1", model.RoleStudent, model.StatusPending, false)

	_, err := svc.Login(context.Background(), LoginInput{Email: "p@x.com", Password: "password1"})
	ae := apperror.From(err)
	assert.Equal(t, apperror.KindAccountPending, ae.Kind)
	assert.Equal(t, "resend_otp", ae.Action)
}

func TestLoginInactiveAccountIsTerminal(t *testing.T) {
	svc, users, _, _, _ := newTestService(t)
	addUser(t, users, "x@x.com", "password1", model.RoleStudent, model.StatusInactive, true)

	_, err := svc.Login(context.Background(), LoginInput{Email: "x@x.com", Password: "password1"})
	ae := apperror.From(err)
	assert.Equal(t, apperror.KindAccountInactive, ae.Kind)
	assert.Empty(t, ae.Action, "no retry hint for a deactivated account")
}

func TestLoginWithoutDeviceAlwaysRequiresOTP(t *testing.T) {
	svc, users, otps, _, mail := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)

	res, err := svc.Login(context.Background(), LoginInput{
		Email: "a@x.com", Password: "password1", DeviceToken: "fp-1", RememberDevice: true,
	})
	require.NoError(t, err)
	assert.False(t, res.SkipOTP, "no trusted device on file, so OTP is mandatory")
	assert.Empty(t, res.Token)
	assert.Equal(t, "fp-1", res.DeviceToken, "opaque token is echoed back for the verify call")
	assert.True(t, res.RememberDevice)

	rec := otps.lastFor(u.ID)
	require.NotNil(t, rec)
	assert.Equal(t, model.PurposeLogin, rec.purpose)
	assert.False(t, rec.used)
	assert.Contains(t, mail.last().body, rec.code)
}

func TestLoginTrustedDeviceSkipsOTP(t *testing.T) {
	svc, users, otps, devices, _ := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)
	_, err := devices.Upsert(context.Background(), u.ID, "fp-1", "Firefox", 30)
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), LoginInput{
		Email: "a@x.com", Password: "password1", DeviceToken: "fp-1",
	})
	require.NoError(t, err)
	assert.True(t, res.SkipOTP)
	assert.Nil(t, otps.lastFor(u.ID), "no OTP may be issued on a trusted-device bypass")

	cl, err := utils.ParseSessionToken("test-secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, cl.UserID)
	assert.Equal(t, "student", cl.Role)
}

func TestLoginExpiredDeviceFallsBackToOTP(t *testing.T) {
	svc, users, otps, devices, _ := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)
	_, err := devices.Upsert(context.Background(), u.ID, "fp-1", "Firefox", 30)
	require.NoError(t, err)
	devices.devices[0].ExpiresAt = time.Now().UTC().Add(-time.Hour)

	res, err := svc.Login(context.Background(), LoginInput{
		Email: "a@x.com", Password: "password1", DeviceToken: "fp-1",
	})
	require.NoError(t, err)
	assert.False(t, res.SkipOTP)
	assert.NotNil(t, otps.lastFor(u.ID))
}

func TestLoginNotifierFailureFailsRequestButKeepsCode(t *testing.T) {
	svc, users, otps, _, mail := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)
	mail.failErr = errStoreDown

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "password1"})
	assert.Equal(t, apperror.KindInternal, kindOf(t, err))
	// The record was durably written before the send attempt.
	assert.NotNil(t, otps.lastFor(u.ID))
}

func TestVerifyOTPConsumesExactlyOnce(t *testing.T) {
	svc, users, _, _, mail := newTestService(t)
	addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)
	_, err := svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)
	code := codeFromMail(t, mail)

	res, err := svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "a@x.com", Code: code})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "a@x.com", Code: code})
	assert.Equal(t, apperror.KindInvalidOTP, kindOf(t, err))
}

func TestVerifyOTPExpiredCodeIsConsumed(t *testing.T) {
	svc, users, otps, _, _ := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)
	require.NoError(t, otps.Create(context.Background(), u.ID, "123456", model.PurposeLogin,
		time.Now().UTC().Add(-time.Minute)))

	_, err := svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "a@x.com", Code: "123456"})
	assert.Equal(t, apperror.KindExpiredOTP, kindOf(t, err))

	// The expired record was consumed; retrying cannot revive it.
	_, err = svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "a@x.com", Code: "123456"})
	assert.Equal(t, apperror.KindInvalidOTP, kindOf(t, err))
}

func TestVerifyOTPPrefersNewestRecord(t *testing.T) {
	svc, users, otps, _, _ := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)
	// Same code issued twice: a stale expired record and a fresh one. The
	// newest must win, so verification succeeds instead of reporting expiry.
	require.NoError(t, otps.Create(context.Background(), u.ID, "654321", model.PurposeLogin,
		time.Now().UTC().Add(-time.Minute)))
	require.NoError(t, otps.Create(context.Background(), u.ID, "654321", model.PurposeLogin,
		time.Now().UTC().Add(5*time.Minute)))

	_, err := svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "a@x.com", Code: "654321"})
	assert.NoError(t, err)
}

func TestVerifyOTPWrongPurposeRejected(t *testing.T) {
	svc, users, otps, _, _ := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)
	require.NoError(t, otps.Create(context.Background(), u.ID, "111222", "reset_password",
		time.Now().UTC().Add(5*time.Minute)))

	_, err := svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "a@x.com", Code: "111222"})
	assert.Equal(t, apperror.KindInvalidOTP, kindOf(t, err))
}

func TestVerifyEmailActivatesAccount(t *testing.T) {
	svc, users, otps, _, _ := newTestService(t)
	u := addUser(t, users, "p@x.com", "password1", model.RoleStudent, model.StatusPending, false)
	require.NoError(t, otps.Create(context.Background(), u.ID, "222333", model.PurposeVerifyEmail,
		time.Now().UTC().Add(5*time.Minute)))

	res, err := svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "p@x.com", Code: "222333"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, res.User.Status)
	assert.NotEmpty(t, res.Token)

	stored, err := users.GetByEmail(context.Background(), "p@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, stored.Status)
	assert.True(t, stored.EmailVerified)
}

func TestRememberDeviceEnablesBypass(t *testing.T) {
	svc, users, _, devices, mail := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)

	_, err := svc.Login(context.Background(), LoginInput{
		Email: "a@x.com", Password: "password1", DeviceToken: "fp-9", RememberDevice: true,
	})
	require.NoError(t, err)
	code := codeFromMail(t, mail)

	_, err = svc.VerifyOTP(context.Background(), VerifyOTPInput{
		Email: "a@x.com", Code: code, DeviceToken: "fp-9", RememberDevice: true, DeviceName: "Firefox",
	})
	require.NoError(t, err)

	d, err := devices.Lookup(context.Background(), u.ID, "fp-9")
	require.NoError(t, err)
	ttl := time.Until(d.ExpiresAt)
	assert.InDelta(t, (30 * 24 * time.Hour).Hours(), ttl.Hours(), 1, "device trust should last ~30 days")

	// The very next login with the same token skips the OTP step.
	res, err := svc.Login(context.Background(), LoginInput{
		Email: "a@x.com", Password: "password1", DeviceToken: "fp-9",
	})
	require.NoError(t, err)
	assert.True(t, res.SkipOTP)
}

func TestVerifyWithoutRememberDoesNotTrustDevice(t *testing.T) {
	svc, users, _, devices, mail := newTestService(t)
	u := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "password1", DeviceToken: "fp-2"})
	require.NoError(t, err)
	code := codeFromMail(t, mail)

	_, err = svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "a@x.com", Code: code, DeviceToken: "fp-2"})
	require.NoError(t, err)

	_, err = devices.Lookup(context.Background(), u.ID, "fp-2")
	assert.Error(t, err)
}

func TestRegisterEmailsVerificationCode(t *testing.T) {
	svc, users, otps, _, mail := newTestService(t)

	err := svc.Register(context.Background(), RegisterInput{
		FullName: "New Student", Email: "new@x.com",
		Password: "password1", ConfirmPassword: "password1",
	}, model.RoleStudent)
	require.NoError(t, err)

	u, err := users.GetByEmail(context.Background(), "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, u.Status)
	assert.Equal(t, model.RoleStudent, u.Role)

	rec := otps.lastFor(u.ID)
	require.NotNil(t, rec)
	assert.Equal(t, model.PurposeVerifyEmail, rec.purpose)
	assert.Equal(t, "new@x.com", mail.last().to)
}

func TestRegisterReplacesStalePendingAccount(t *testing.T) {
	svc, users, _, _, _ := newTestService(t)
	addUser(t, users, "again@x.com", "oldpassword", model.RoleStudent, model.StatusPending, false)

	err := svc.Register(context.Background(), RegisterInput{
		FullName: "Second Try", Email: "again@x.com",
		Password: "password2", ConfirmPassword: "password2",
	}, model.RoleStudent)
	require.NoError(t, err)

	u, err := users.GetByEmail(context.Background(), "again@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Second Try", u.FullName)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "password2"))
}

func TestRegisterRejectsVerifiedEmail(t *testing.T) {
	svc, users, _, _, _ := newTestService(t)
	addUser(t, users, "taken@x.com", "password1", model.RoleStudent, model.StatusActive, true)

	err := svc.Register(context.Background(), RegisterInput{
		FullName: "Someone Else", Email: "taken@x.com",
		Password: "password2", ConfirmPassword: "password2",
	}, model.RoleStudent)
	assert.Equal(t, apperror.KindEmailExists, kindOf(t, err))
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@x.com", Password: "password1", ConfirmPassword: "password1"}},
		{"bad email", RegisterInput{FullName: "A", Email: "not-an-email", Password: "password1", ConfirmPassword: "password1"}},
		{"short password", RegisterInput{FullName: "A", Email: "a@x.com", Password: "short", ConfirmPassword: "short"}},
		{"mismatch", RegisterInput{FullName: "A", Email: "a@x.com", Password: "password1", ConfirmPassword: "password2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Register(context.Background(), tc.in, model.RoleStudent)
			assert.Equal(t, apperror.KindInvalidInput, kindOf(t, err))
		})
	}
}

func TestResendOTPPurposeFollowsAccountState(t *testing.T) {
	svc, users, otps, _, _ := newTestService(t)
	pending := addUser(t, users, "p@x.com", "password1", model.RoleStudent, model.StatusPending, false)
	active := addUser(t, users, "a@x.com", "password1", model.RoleStudent, model.StatusActive, true)

	require.NoError(t, svc.ResendOTP(context.Background(), "p@x.com"))
	assert.Equal(t, model.PurposeVerifyEmail, otps.lastFor(pending.ID).purpose)

	require.NoError(t, svc.ResendOTP(context.Background(), "a@x.com"))
	assert.Equal(t, model.PurposeLogin, otps.lastFor(active.ID).purpose)
}

func TestRevokeDeviceScopedToOwner(t *testing.T) {
	svc, _, _, devices, _ := newTestService(t)
	_, err := devices.Upsert(context.Background(), 1, "fp-1", "Firefox", 30)
	require.NoError(t, err)
	deviceID := devices.devices[0].ID

	err = svc.RevokeDevice(context.Background(), 2, deviceID)
	assert.Equal(t, apperror.KindNotFound, kindOf(t, err))

	require.NoError(t, svc.RevokeDevice(context.Background(), 1, deviceID))
}

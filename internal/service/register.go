package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/smartlearning/auth-service/internal/apperror"
	"github.com/smartlearning/auth-service/internal/model"
	"github.com/smartlearning/auth-service/internal/repository"
)

// RegisterInput is the sign-up form for both student and instructor
// registration; the role is chosen by the endpoint, never by form data.
type RegisterInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register creates a pending account and emails a verify_email code. A
// previous registration that never verified its email is discarded so the
// address can be claimed again; a verified account blocks re-registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, role model.Role) error {
	if err := validateRegisterInput(in); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Status == model.StatusPending && !existing.EmailVerified {
			if _, err := s.users.DeletePendingByEmail(ctx, email); err != nil {
				return apperror.Wrap(apperror.KindInternal, "could not replace pending account", err)
			}
			// Codes issued to the discarded registration must not remain
			// redeemable against the address.
			if err := s.otps.DeleteForUser(ctx, existing.ID); err != nil {
				return apperror.Wrap(apperror.KindInternal, "could not discard stale codes", err)
			}
		} else {
			return apperror.New(apperror.KindEmailExists, "email is already registered")
		}
	case errors.Is(err, sql.ErrNoRows):
		// Fresh address.
	default:
		return apperror.Wrap(apperror.KindInternal, "could not look up user", err)
	}

	id, err := s.users.Create(ctx, email, in.Password, strings.TrimSpace(in.FullName), role, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return apperror.New(apperror.KindEmailExists, "email is already registered")
		}
		return apperror.Wrap(apperror.KindInternal, "could not create user", err)
	}

	u := model.User{
		ID:       id,
		Email:    email,
		FullName: strings.TrimSpace(in.FullName),
		Role:     role,
		Status:   model.StatusPending,
	}
	return s.issueOTP(ctx, u, model.PurposeVerifyEmail)
}

// ResendOTP issues a fresh code for a user who lost or never received the
// previous one. The purpose follows the account state: unverified accounts
// get another verify_email code, verified accounts get a login code.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.KindNotFound, "user not found")
		}
		return apperror.Wrap(apperror.KindInternal, "could not look up user", err)
	}

	purpose := model.PurposeVerifyEmail
	if u.EmailVerified {
		purpose = model.PurposeLogin
	}
	return s.issueOTP(ctx, u, purpose)
}

func validateRegisterInput(in RegisterInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return apperror.New(apperror.KindInvalidInput, "full name is required")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return apperror.New(apperror.KindInvalidInput, "a valid email address is required")
	}
	if len(in.Password) < 8 {
		return apperror.New(apperror.KindInvalidInput, "password must be at least 8 characters")
	}
	if in.Password != in.ConfirmPassword {
		return apperror.New(apperror.KindInvalidInput, "passwords do not match")
	}
	return nil
}

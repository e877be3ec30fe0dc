package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/smartlearning/auth-service/internal/apperror"
	"github.com/smartlearning/auth-service/internal/model"
)

// ListDevices returns the caller's trusted-device bindings, newest first.
func (s *AuthService) ListDevices(ctx context.Context, userID uint64) ([]model.TrustedDevice, error) {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "could not list devices", err)
	}
	return devices, nil
}

// RevokeDevice removes one of the caller's device bindings. The next login
// from that device will require an OTP again.
func (s *AuthService) RevokeDevice(ctx context.Context, userID, deviceID uint64) error {
	if err := s.devices.Revoke(ctx, userID, deviceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.KindNotFound, "device not found")
		}
		return apperror.Wrap(apperror.KindInternal, "could not revoke device", err)
	}
	return nil
}

// RevokeAllDevices removes every device binding for the caller and returns
// how many were removed.
func (s *AuthService) RevokeAllDevices(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.devices.RevokeAll(ctx, userID)
	if err != nil {
		return 0, apperror.Wrap(apperror.KindInternal, "could not revoke devices", err)
	}
	return n, nil
}

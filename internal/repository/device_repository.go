package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartlearning/auth-service/internal/model"
)

// DeviceRepo persists trusted-device bindings in the 'trusted_devices'
// table. The table carries UNIQUE(user_id, device_token) so Upsert is
// idempotent under repeated calls with the same token.
type DeviceRepo struct{ DB *sql.DB }

func NewDeviceRepo(db *sql.DB) *DeviceRepo { return &DeviceRepo{DB: db} }

// Lookup returns the device record for (user, token) if one exists and has
// not expired. sql.ErrNoRows means the device is not trusted.
func (r *DeviceRepo) Lookup(ctx context.Context, userID uint64, token string) (model.TrustedDevice, error) {
	var d model.TrustedDevice
	err := r.DB.QueryRowContext(ctx,
		"SELECT device_id,user_id,device_token,device_name,last_used,expires_at,created_at"+
			" FROM trusted_devices WHERE user_id=? AND device_token=? AND expires_at>=UTC_TIMESTAMP() LIMIT 1",
		userID, token).
		Scan(&d.ID, &d.UserID, &d.DeviceToken, &d.DeviceName, &d.LastUsed, &d.ExpiresAt, &d.CreatedAt)
	return d, err
}

// Touch records a successful bypass use.
func (r *DeviceRepo) Touch(ctx context.Context, deviceID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE trusted_devices SET last_used=UTC_TIMESTAMP() WHERE device_id=?", deviceID)
	return err
}

// Upsert creates or refreshes the binding for (user, token), extending its
// expiry to now + ttlDays. Returns the new expiry.
func (r *DeviceRepo) Upsert(ctx context.Context, userID uint64, token, name string, ttlDays int) (time.Time, error) {
	expires := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO trusted_devices (user_id, device_token, device_name, last_used, expires_at)"+
			" VALUES (?,?,?,UTC_TIMESTAMP(),?)"+
			" ON DUPLICATE KEY UPDATE device_name=VALUES(device_name), last_used=VALUES(last_used), expires_at=VALUES(expires_at)",
		userID, token, name, expires)
	if err != nil {
		return time.Time{}, err
	}
	return expires, nil
}

// ListByUser returns all of a user's device bindings, newest first,
// including expired rows not yet swept (shown as expired in the UI).
func (r *DeviceRepo) ListByUser(ctx context.Context, userID uint64) ([]model.TrustedDevice, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT device_id,user_id,device_token,device_name,last_used,expires_at,created_at"+
			" FROM trusted_devices WHERE user_id=? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrustedDevice
	for rows.Next() {
		var d model.TrustedDevice
		if err := rows.Scan(&d.ID, &d.UserID, &d.DeviceToken, &d.DeviceName, &d.LastUsed, &d.ExpiresAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Revoke hard-deletes a single device. Scoped to the owning user so one
// user cannot revoke another's device by guessing IDs.
func (r *DeviceRepo) Revoke(ctx context.Context, userID, deviceID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM trusted_devices WHERE device_id=? AND user_id=?", deviceID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RevokeAll hard-deletes every device binding for a user.
func (r *DeviceRepo) RevokeAll(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM trusted_devices WHERE user_id=?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired sweeps rows past their expiry and returns the count
// removed. The delete-where-expired form is idempotent, so an interrupted
// sweep simply finishes on the next run.
func (r *DeviceRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM trusted_devices WHERE expires_at<UTC_TIMESTAMP()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

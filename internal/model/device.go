package model

import "time"

// TrustedDevice mirrors the 'trusted_devices' table. DeviceToken is a
// client-computed fingerprint treated as an opaque bearer value; the server
// only ever performs equality and expiry checks on it. While a record is
// unexpired the device may skip the login OTP step.
type TrustedDevice struct {
	ID          uint64    // trusted_devices.device_id
	UserID      uint64    // trusted_devices.user_id
	DeviceToken string    // trusted_devices.device_token
	DeviceName  string    // trusted_devices.device_name (user agent label)
	LastUsed    time.Time // trusted_devices.last_used
	ExpiresAt   time.Time // trusted_devices.expires_at
	CreatedAt   time.Time // trusted_devices.created_at
}

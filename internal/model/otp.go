package model

import "time"

// OTP purposes. A code issued for one purpose may only be consumed by flows
// that accept that purpose: verify_email confirms a fresh registration,
// login is the second factor of the login flow.
const (
	PurposeVerifyEmail = "verify_email"
	PurposeLogin       = "login"
)

// OTP mirrors the 'user_otps' table. A code is valid only while it is
// unused, unexpired and matched against the owning user and an allowed
// purpose. Consumption flips Used exactly once; stale unconsumed codes are
// left in place until they expire.
type OTP struct {
	ID        uint64    // user_otps.otp_id
	UserID    uint64    // user_otps.user_id
	Code      string    // user_otps.code (6 digits)
	Purpose   string    // user_otps.purpose
	Used      bool      // user_otps.used
	ExpiresAt time.Time // user_otps.expires_at
	CreatedAt time.Time // user_otps.created_at
}

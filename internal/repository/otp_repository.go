package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Sentinel errors for OTP verification. Expired is reported separately from
// invalid only so the OTP endpoint can drive a "resend" prompt; the login
// endpoint never distinguishes the two.
var (
	ErrOTPInvalid = errors.New("invalid otp code")
	ErrOTPExpired = errors.New("otp code expired")
)

// OTPRepo persists and redeems one-time passwords in the 'user_otps' table.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Create inserts a fresh unused code. Prior unconsumed codes for the same
// user are left untouched; they stay redeemable until they expire and
// Consume prefers the newest record.
func (r *OTPRepo) Create(ctx context.Context, userID uint64, code, purpose string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_otps (user_id, code, purpose, used, expires_at) VALUES (?,?,?,0,?)",
		userID, code, purpose, expiresAt)
	return err
}

// Consume redeems the newest unused record matching (user, code, purpose in
// allowed set) and returns its purpose. The claim itself is a conditional
// UPDATE guarded on used=0, so when two requests race on the same code at
// most one of them flips the flag; the loser re-selects and ends up with
// ErrOTPInvalid. An expired match is also consumed, then reported as
// ErrOTPExpired so the code cannot be retried against a half-expired window.
func (r *OTPRepo) Consume(ctx context.Context, userID uint64, code string, purposes []string) (string, error) {
	if len(purposes) == 0 {
		return "", ErrOTPInvalid
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(purposes)), ",")
	query := "SELECT otp_id, purpose, expires_at FROM user_otps" +
		" WHERE user_id=? AND code=? AND used=0 AND purpose IN (" + placeholders + ")" +
		" ORDER BY created_at DESC, otp_id DESC LIMIT 1"

	args := make([]interface{}, 0, len(purposes)+2)
	args = append(args, userID, code)
	for _, p := range purposes {
		args = append(args, p)
	}

	for {
		var (
			otpID     uint64
			purpose   string
			expiresAt time.Time
		)
		err := r.DB.QueryRowContext(ctx, query, args...).Scan(&otpID, &purpose, &expiresAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", ErrOTPInvalid
			}
			return "", err
		}

		res, err := r.DB.ExecContext(ctx,
			"UPDATE user_otps SET used=1 WHERE otp_id=? AND used=0", otpID)
		if err != nil {
			return "", err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", err
		}
		if n == 0 {
			// Lost the race on this record; a concurrent request consumed
			// it first. Look again in case an older candidate remains.
			continue
		}
		if time.Now().UTC().After(expiresAt) {
			return "", ErrOTPExpired
		}
		return purpose, nil
	}
}

// DeleteForUser removes every outstanding code for a user. Used when a
// pending registration is discarded on re-register (also covered by the FK
// cascade; kept for stores without one).
func (r *OTPRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM user_otps WHERE user_id=?", userID)
	return err
}

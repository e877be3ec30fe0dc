package utils // package utils provides helper functions for sessions, codes and hashing

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "session"

// Sentinel errors returned by ParseSessionToken. An altered or forged token
// always surfaces as ErrSessionInvalid; ErrSessionExpired is reserved for
// tokens whose signature verified but whose expiry has passed.
var (
	ErrSessionInvalid = errors.New("invalid session token")
	ErrSessionExpired = errors.New("session expired")
)

// SessionClaims is the self-contained claim set carried by the session
// cookie. The session is derived data: nothing is persisted server-side and
// a refresh is a wholesale re-issue, never a mutation.
type SessionClaims struct {
	UserID   uint64
	Email    string
	Role     string
	FullName string
	Expires  time.Time
}

// NewSessionToken builds and signs an HS256 JWT asserting the user's
// identity and role. The signature covers every claim field, so any
// tampering is detectable. ttlDays controls the absolute lifetime.
func NewSessionToken(secret string, userID uint64, email, role, fullName string, ttlDays int) (string, time.Time, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":       userID,
		"email":     email,
		"role":      role,
		"full_name": fullName,
		"exp":       exp.Unix(),
		"iat":       time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseSessionToken verifies a session token and returns its claims. The
// jwt library checks the signature before any claim validation, so a
// tampered token is reported as invalid rather than expired and the
// response does not act as an oracle for which check failed first.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Type assert the signing method to HMAC; reject others.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSessionInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, ErrSessionInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return SessionClaims{}, ErrSessionInvalid
	}

	var cl SessionClaims
	switch sub := claims["sub"].(type) {
	case float64:
		cl.UserID = uint64(sub)
	default:
		return SessionClaims{}, ErrSessionInvalid
	}
	cl.Email, _ = claims["email"].(string)
	cl.Role, _ = claims["role"].(string)
	cl.FullName, _ = claims["full_name"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		cl.Expires = exp.Time
	}
	return cl, nil
}

// SessionCookie wraps a signed token in the HTTP-only session cookie. The
// cookie expiry matches the token's absolute expiry.
func SessionCookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie returns a cookie that clears the session on the
// client. Logout is stateless: the server keeps no revocation list, so a
// stolen token stays valid until its natural expiry.
func ExpiredSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

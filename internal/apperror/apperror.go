// Package apperror defines the structured, user-facing error type shared by
// the service and handler layers. Every error carries a stable
// machine-readable Kind so clients branch on kinds (and the action/role
// hints), never on message text. Internal faults are wrapped with
// KindInternal and keep their cause for server-side logging only.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable machine-readable error class.
type Kind string

const (
	// KindInvalidCredentials merges unknown-email and wrong-password into a
	// single class so login responses never reveal which field was wrong.
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindAccountPending     Kind = "ACCOUNT_PENDING"
	KindAccountInactive    Kind = "ACCOUNT_INACTIVE"
	KindRoleMismatch       Kind = "ROLE_MISMATCH"
	KindInvalidOTP         Kind = "INVALID_OTP"
	KindExpiredOTP         Kind = "EXPIRED_OTP"
	KindInvalidSession     Kind = "INVALID_SESSION"
	KindExpiredSession     Kind = "EXPIRED_SESSION"
	KindForbidden          Kind = "FORBIDDEN"
	KindEmailExists        Kind = "EMAIL_EXISTS"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindNotFound           Kind = "NOT_FOUND"
	KindInternal           Kind = "INTERNAL"
)

// Error is the structured error surfaced to API clients. Message is for
// display only. Action carries a machine hint such as "resend_otp";
// WrongRole/CorrectRole drive the redirect-to-correct-portal UX.
type Error struct {
	Kind        Kind
	Message     string
	Action      string
	WrongRole   bool
	CorrectRole string
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with a kind and display message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that keeps its cause for logging. The cause is never
// serialized to clients.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// From extracts an *Error from err. Unknown errors are reported as a
// generic internal fault so nothing leaks to the client.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(KindInternal, "internal server error", err)
}

// HTTPStatus maps an error kind to its transport status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindInvalidCredentials, KindInvalidSession, KindExpiredSession:
		return http.StatusUnauthorized
	case KindAccountPending, KindAccountInactive, KindRoleMismatch, KindForbidden:
		return http.StatusForbidden
	case KindInvalidOTP, KindExpiredOTP, KindInvalidInput:
		return http.StatusBadRequest
	case KindEmailExists:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

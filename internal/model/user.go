package model

import "time"

// Account status values stored in users.status. A user is created as
// pending, becomes active when the verify_email OTP is redeemed, and may be
// suspended to inactive by an administrator. Inactive is terminal from the
// login flow's point of view.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User mirrors the 'users' table. The password is never stored in the
// clear; PasswordHash holds a bcrypt digest. Role is the canonical role
// name (see role.go) stored in a single column.
type User struct {
	ID            uint64    // users.id
	Email         string    // users.email (unique, lowercased)
	PasswordHash  string    // users.password_hash
	FullName      string    // users.full_name
	Role          Role      // users.role
	Status        string    // users.status (pending|active|inactive)
	EmailVerified bool      // users.email_verified
	CreatedAt     time.Time // users.created_at
	UpdatedAt     time.Time // users.updated_at
}

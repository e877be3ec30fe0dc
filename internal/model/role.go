package model

import "strings"

// Role is the closed set of portal roles. Clients and legacy rows may carry
// synonyms ("lecturer", "teacher"); those are folded into the canonical
// values at the system boundary by NormalizeRole so internal logic only ever
// compares canonical roles.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// NormalizeRole maps an external role string onto the canonical enum. The
// second return value reports whether the input named a known role.
func NormalizeRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent, true
	case "instructor", "lecturer", "teacher":
		return RoleInstructor, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }

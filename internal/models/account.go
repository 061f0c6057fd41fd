package models

import "time"

// Account roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Account represents a verified (or pending-verification) user of the portal.
// Accounts only come into existence through promotion of a PendingRegistration
// or admin seeding; email and username are globally unique.
type Account struct {
	ID            int64
	Email         string
	Username      string
	FullName      string
	PasswordHash  string
	Role          string
	IsVerified    bool
	DegreeProgram string
	Subjects      []string
	CreatedAt     time.Time
}

// IsAdmin reports whether the account has the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// PendingRegistration holds an unconfirmed signup awaiting OTP verification.
// Keyed by email; destroyed when promoted into an Account.
type PendingRegistration struct {
	Email        string
	Username     string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
}

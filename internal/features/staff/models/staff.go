package models

import (
	"errors"
	"time"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleStaff      Role = "STAFF"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDisabled Status = "DISABLED"
)

// StaffUser is an administrative account. The password hash never
// crosses the service boundary: it is excluded from JSON and only the
// staff service compares against it.
type StaffUser struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// EmailVerification is the SQL-backed OTP record used before staff
// account creation. Unlike participant OTPs it lives in Postgres, not
// the cache, because it has no natural TTL eviction path and carries
// an audit trail.
type EmailVerification struct {
	ID        int64
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	Verified  bool
	CreatedAt time.Time
}

var (
	ErrNotFound            = errors.New("staff user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrEmailExists         = errors.New("email already in use")
	ErrEmailNotVerified    = errors.New("email has not been verified")
	ErrVerificationMissing = errors.New("no verification found for this email")
	ErrVerificationExpired = errors.New("verification code expired")
	ErrTooManyAttempts     = errors.New("too many attempts, please request a new code")
	ErrInvalidCode         = errors.New("invalid verification code")
)

package models

import "errors"

// State is the explicit registration verification state. Transitions
// are strictly linear; anything else is rejected by the service.
type State string

const (
	StateInfoSubmitted State = "INFO_SUBMITTED"
	StatePhoneVerified State = "PHONE_VERIFIED"
	StateEmailVerified State = "EMAIL_VERIFIED"
	StateConsumed      State = "CONSUMED"
)

// Session is the ephemeral, TTL-bound verification record. Expiry is
// the store's eviction: a missing session means EXPIRED.
type Session struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	State State  `json:"state"`
}

func (s *Session) PhoneVerified() bool {
	return s.State == StatePhoneVerified || s.State == StateEmailVerified || s.State == StateConsumed
}

// Complete reports whether both contacts are verified and the session
// has not yet been consumed by registration.
func (s *Session) Complete() bool {
	return s.State == StateEmailVerified
}

var (
	ErrSessionNotFound   = errors.New("verification session expired or not found")
	ErrTooManyAttempts   = errors.New("too many attempts, please try again later")
	ErrResendCooldown    = errors.New("please wait before requesting a new code")
	ErrInvalidCode       = errors.New("invalid or expired code")
	ErrInvalidTransition = errors.New("verification step not allowed in current state")
	ErrNotComplete       = errors.New("verification not complete")
)

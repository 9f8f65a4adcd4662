package models

import (
	"errors"
	"time"
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusLocked Status = "LOCKED"
)

// Participant is a registered loyalty member. TotalPoints is the
// historical ledger of everything earned and never decreases;
// ActivePoints is the spendable balance decremented by redemption.
type Participant struct {
	ID           int64     `json:"id"`
	UniqueID     string    `json:"uniqueId"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	GovID        string    `json:"govId"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	TotalPoints  int       `json:"totalPoints"`
	ActivePoints int       `json:"activePoints"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RegisterInput struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	GovID     string `json:"govId" binding:"required,max=50"`
	Phone     string `json:"phone" binding:"required,numeric,min=9,max=15"`
	Email     string `json:"email" binding:"required,email"`
}

type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UniqueID     string `json:"uniqueId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	TotalPoints  int    `json:"totalPoints"`
	ActivePoints int    `json:"activePoints"`
}

// PublicRank is the anonymous leaderboard lookup result: no names, no
// contact data.
type PublicRank struct {
	Rank         int    `json:"rank"`
	UniqueID     string `json:"uniqueId"`
	TotalPoints  int    `json:"totalPoints"`
	ActivePoints int    `json:"activePoints"`
}

var (
	ErrNotFound        = errors.New("participant not found")
	ErrLocked          = errors.New("participant is locked")
	ErrPhoneExists     = errors.New("phone number already registered")
	ErrEmailExists     = errors.New("email already registered")
	ErrGovIDExists     = errors.New("government id already registered")
	ErrSessionMismatch = errors.New("session data mismatch")
	ErrInvalidPoints   = errors.New("points must be a positive amount")
)

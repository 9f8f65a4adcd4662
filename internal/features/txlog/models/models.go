package models

import "time"

type Type string

const (
	TypeRegister          Type = "REGISTER"
	TypeAddPoints         Type = "ADD_POINTS"
	TypeRedeem            Type = "REDEEM"
	TypeLockParticipant   Type = "LOCK_PARTICIPANT"
	TypeUnlockParticipant Type = "UNLOCK_PARTICIPANT"
	TypeStaffCreate       Type = "STAFF_CREATE"
	TypeResetPassword     Type = "RESET_PASSWORD"
	TypeStaffActivate     Type = "STAFF_ACTIVATE"
	TypeStaffDeactivate   Type = "STAFF_DEACTIVATE"
)

// Entry is the write-side shape of an audit row. Optional references
// are pointers so absent values map to SQL NULL.
type Entry struct {
	Type          Type
	ParticipantID *int64
	StaffID       *int64
	PrizeID       *int64
	PointsChange  *int
	Note          string
}

// LogEntry is the read-side shape, with referenced names joined in for
// reporting.
type LogEntry struct {
	ID              int64     `json:"id"`
	Type            Type      `json:"type"`
	ParticipantID   *int64    `json:"participantId"`
	ParticipantName *string   `json:"participantName"`
	StaffID         *int64    `json:"staffId"`
	StaffName       *string   `json:"staffName"`
	PointsChange    *int      `json:"pointsChange"`
	PrizeID         *int64    `json:"prizeId"`
	PrizeName       *string   `json:"prizeName"`
	Note            *string   `json:"note"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Filters struct {
	Type          Type
	ParticipantID int64
	StaffID       int64
	From          time.Time
	To            time.Time
}

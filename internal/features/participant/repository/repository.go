package repository

import (
	"context"

	"loyalty-promo-backend/internal/features/participant/models"
)

type Field string

const (
	FieldPhone Field = "phone"
	FieldEmail Field = "email"
	FieldGovID Field = "gov_id"
)

// ParticipantRepository owns participant rows. Mutating methods run a
// single transaction that takes a row lock, applies the change and
// writes the audit entry together.
type ParticipantRepository interface {
	// Create inserts the participant with zero balances, generating a
	// unique id via genID and retrying on collision inside the same
	// transaction that writes the REGISTER log entry.
	Create(ctx context.Context, in models.RegisterInput, staffID int64, genID func() (string, error)) (*models.Participant, error)

	// AddPoints locks the row, increments both balances and writes the
	// ADD_POINTS entry. Returns models.ErrNotFound or models.ErrLocked.
	AddPoints(ctx context.Context, id int64, points int, staffID int64, note string) (*models.Participant, error)

	// SetStatus flips the lock state and writes the matching audit
	// entry with reason as the note.
	SetStatus(ctx context.Context, id int64, status models.Status, staffID int64, reason string) error

	GetByID(ctx context.Context, id int64) (*models.Participant, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*models.Participant, error)
	Search(ctx context.Context, query string, limit int) ([]models.Participant, error)
	List(ctx context.Context, limit, offset int) ([]models.Participant, error)
	FieldExists(ctx context.Context, field Field, value string) (bool, error)

	Leaderboard(ctx context.Context, limit, offset int) ([]models.LeaderboardEntry, error)
	PublicRank(ctx context.Context, uniqueID string) (*models.PublicRank, error)
}

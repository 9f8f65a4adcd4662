package repository

import (
	"context"
	"time"

	"loyalty-promo-backend/internal/features/staff/models"
)

type StaffRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.StaffUser, error)
	GetByID(ctx context.Context, id int64) (*models.StaffUser, error)
	List(ctx context.Context) ([]models.StaffUser, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// Create inserts the staff row and the STAFF_CREATE audit entry in
	// one transaction.
	Create(ctx context.Context, u *models.StaffUser, createdBy int64) (*models.StaffUser, error)

	// UpdatePassword swaps the hash and writes RESET_PASSWORD in one
	// transaction. Token revocation is the service's concern.
	UpdatePassword(ctx context.Context, id int64, passwordHash string, resetBy int64) error

	// SetStatus flips ACTIVE/DISABLED and writes the matching audit
	// entry in one transaction.
	SetStatus(ctx context.Context, id int64, status models.Status, changedBy int64) (*models.StaffUser, error)

	CreateEmailVerification(ctx context.Context, email, codeHash string, expiresAt time.Time) error
	LatestEmailVerification(ctx context.Context, email string) (*models.EmailVerification, error)
	IncrementVerificationAttempts(ctx context.Context, id int64) error
	MarkEmailVerified(ctx context.Context, id int64) error
	IsEmailVerified(ctx context.Context, email string) (bool, error)
}

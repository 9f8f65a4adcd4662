package repository

import (
	"context"

	"loyalty-promo-backend/internal/features/prize/models"
)

type PrizeRepository interface {
	Create(ctx context.Context, in models.CreateInput) (*models.Prize, error)
	Update(ctx context.Context, id int64, in models.UpdateInput) (*models.Prize, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Prize, error)
	List(ctx context.Context) ([]models.Prize, error)
	// ListActive returns redeemable prizes: active and in stock,
	// cheapest first.
	ListActive(ctx context.Context) ([]models.Prize, error)

	// Redeem executes the points-for-prize exchange in one
	// transaction. Row locks are taken participant first, prize
	// second; every concurrent redemption acquires them in that order,
	// which rules out lock-order deadlocks.
	Redeem(ctx context.Context, participantID, prizeID, staffID int64) error
}

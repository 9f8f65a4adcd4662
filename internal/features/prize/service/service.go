package service

import (
	"context"

	"loyalty-promo-backend/internal/common/logger"
	"loyalty-promo-backend/internal/features/prize/models"
	"loyalty-promo-backend/internal/features/prize/repository"
)

type PrizeService interface {
	Create(ctx context.Context, in models.CreateInput) (*models.Prize, error)
	Update(ctx context.Context, id int64, in models.UpdateInput) (*models.Prize, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Prize, error)
	List(ctx context.Context) ([]models.Prize, error)
	ListActive(ctx context.Context) ([]models.Prize, error)
	Redeem(ctx context.Context, participantID, prizeID, staffID int64) error
}

type prizeService struct {
	repo repository.PrizeRepository
}

func NewPrizeService(repo repository.PrizeRepository) PrizeService {
	return &prizeService{repo: repo}
}

func (s *prizeService) Create(ctx context.Context, in models.CreateInput) (*models.Prize, error) {
	if in.CostPoints < 1 {
		return nil, models.ErrInvalidCost
	}
	return s.repo.Create(ctx, in)
}

func (s *prizeService) Update(ctx context.Context, id int64, in models.UpdateInput) (*models.Prize, error) {
	if in.CostPoints != nil && *in.CostPoints < 1 {
		return nil, models.ErrInvalidCost
	}

	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, models.ErrPrizeNotFound
	}
	return updated, nil
}

func (s *prizeService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *prizeService) GetByID(ctx context.Context, id int64) (*models.Prize, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *prizeService) List(ctx context.Context) ([]models.Prize, error) {
	return s.repo.List(ctx)
}

func (s *prizeService) ListActive(ctx context.Context) ([]models.Prize, error) {
	return s.repo.ListActive(ctx)
}

func (s *prizeService) Redeem(ctx context.Context, participantID, prizeID, staffID int64) error {
	if err := s.repo.Redeem(ctx, participantID, prizeID, staffID); err != nil {
		return err
	}

	logger.Info().
		Int64("participant_id", participantID).
		Int64("prize_id", prizeID).
		Int64("staff_id", staffID).
		Msg("prize redeemed")
	return nil
}

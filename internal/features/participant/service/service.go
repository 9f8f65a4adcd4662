package service

import (
	"context"
	"fmt"

	"loyalty-promo-backend/internal/common/logger"
	"loyalty-promo-backend/internal/common/secrets"
	"loyalty-promo-backend/internal/features/participant/models"
	"loyalty-promo-backend/internal/features/participant/repository"
	verifservice "loyalty-promo-backend/internal/features/verification/service"
	"loyalty-promo-backend/internal/notify"
)

const searchLimit = 20

type ParticipantService interface {
	// Register materializes a participant after a completed
	// verification session. The session's stored phone and email are
	// authoritative; resubmitted values must match or the call fails
	// with models.ErrSessionMismatch.
	Register(ctx context.Context, sessionID string, in models.RegisterInput, staffID int64) (*models.Participant, error)

	CheckUnique(ctx context.Context, in models.RegisterInput) error
	AddPoints(ctx context.Context, participantID int64, points int, staffID int64, note string) (*models.Participant, error)
	Lock(ctx context.Context, participantID, staffID int64, reason string) error
	Unlock(ctx context.Context, participantID, staffID int64) error
	GetByUniqueID(ctx context.Context, uniqueID string) (*models.Participant, error)
	Search(ctx context.Context, query string) ([]models.Participant, error)
	List(ctx context.Context, limit, offset int) ([]models.Participant, error)
	Leaderboard(ctx context.Context, limit, offset int) ([]models.LeaderboardEntry, error)
	PublicRank(ctx context.Context, uniqueID string) (*models.PublicRank, error)
}

type participantService struct {
	repo         repository.ParticipantRepository
	verification verifservice.VerificationService
	notifier     notify.Notifier
}

func NewParticipantService(
	repo repository.ParticipantRepository,
	verification verifservice.VerificationService,
	notifier notify.Notifier,
) ParticipantService {
	return &participantService{
		repo:         repo,
		verification: verification,
		notifier:     notifier,
	}
}

// CheckUnique rejects registration input whose phone, email or
// government id already belongs to an existing participant.
func (s *participantService) CheckUnique(ctx context.Context, in models.RegisterInput) error {
	checks := []struct {
		field repository.Field
		value string
		err   error
	}{
		{repository.FieldPhone, in.Phone, models.ErrPhoneExists},
		{repository.FieldEmail, in.Email, models.ErrEmailExists},
		{repository.FieldGovID, in.GovID, models.ErrGovIDExists},
	}

	for _, c := range checks {
		exists, err := s.repo.FieldExists(ctx, c.field, c.value)
		if err != nil {
			return fmt.Errorf("failed to check %s uniqueness: %w", c.field, err)
		}
		if exists {
			return c.err
		}
	}
	return nil
}

func (s *participantService) Register(ctx context.Context, sessionID string, in models.RegisterInput, staffID int64) (*models.Participant, error) {
	if err := s.CheckUnique(ctx, in); err != nil {
		return nil, err
	}

	session, err := s.verification.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Phone != in.Phone || session.Email != in.Email {
		return nil, models.ErrSessionMismatch
	}

	// Consume marks the session used before the insert; racing
	// complete calls for the same person ultimately fall to the unique
	// constraints on phone, email and gov_id.
	if _, err := s.verification.Consume(ctx, sessionID); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, in, staffID, secrets.GenerateUniqueID)
	if err != nil {
		return nil, err
	}

	// Notification is best-effort: the participant row is already
	// committed, a failed dispatch must not roll it back.
	if err := s.notifier.SendUniqueIDNotice(ctx, notify.ChannelPhone, created.Phone, created.UniqueID); err != nil {
		logger.Error().Err(err).Str("unique_id", created.UniqueID).Msg("failed to send unique id SMS")
	}
	if err := s.notifier.SendUniqueIDNotice(ctx, notify.ChannelEmail, created.Email, created.UniqueID); err != nil {
		logger.Error().Err(err).Str("unique_id", created.UniqueID).Msg("failed to send unique id email")
	}

	logger.Info().
		Str("unique_id", created.UniqueID).
		Int64("staff_id", staffID).
		Msg("participant registered")

	return created, nil
}

func (s *participantService) AddPoints(ctx context.Context, participantID int64, points int, staffID int64, note string) (*models.Participant, error) {
	if points <= 0 {
		return nil, models.ErrInvalidPoints
	}
	if note == "" {
		note = fmt.Sprintf("Added %d points", points)
	}
	return s.repo.AddPoints(ctx, participantID, points, staffID, note)
}

func (s *participantService) Lock(ctx context.Context, participantID, staffID int64, reason string) error {
	return s.repo.SetStatus(ctx, participantID, models.StatusLocked, staffID, reason)
}

func (s *participantService) Unlock(ctx context.Context, participantID, staffID int64) error {
	return s.repo.SetStatus(ctx, participantID, models.StatusActive, staffID, "Unlocked participant")
}

func (s *participantService) GetByUniqueID(ctx context.Context, uniqueID string) (*models.Participant, error) {
	return s.repo.GetByUniqueID(ctx, uniqueID)
}

func (s *participantService) Search(ctx context.Context, query string) ([]models.Participant, error) {
	return s.repo.Search(ctx, query, searchLimit)
}

func (s *participantService) List(ctx context.Context, limit, offset int) ([]models.Participant, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *participantService) Leaderboard(ctx context.Context, limit, offset int) ([]models.LeaderboardEntry, error) {
	return s.repo.Leaderboard(ctx, limit, offset)
}

func (s *participantService) PublicRank(ctx context.Context, uniqueID string) (*models.PublicRank, error) {
	return s.repo.PublicRank(ctx, uniqueID)
}

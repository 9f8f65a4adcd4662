package service

import (
	"context"
	"fmt"
	"time"

	"loyalty-promo-backend/internal/common/logger"
	"loyalty-promo-backend/internal/common/secrets"
	"loyalty-promo-backend/internal/common/token"
	"loyalty-promo-backend/internal/features/staff/models"
	"loyalty-promo-backend/internal/features/staff/repository"
	"loyalty-promo-backend/internal/notify"
)

type StaffService interface {
	// Authenticate verifies the password and issues a session token.
	Authenticate(ctx context.Context, username, password string) (string, *models.StaffUser, error)

	// Logout revokes every token issued to the user so far.
	Logout(ctx context.Context, userID int64) error

	SendEmailVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) error

	// Create materializes a staff account after email verification,
	// generating username and password and dispatching them to the new
	// member. The plaintext password exists only for that dispatch.
	Create(ctx context.Context, firstName, lastName, email string, role models.Role, createdBy int64) (*models.StaffUser, error)

	// ResetPassword issues a fresh strong password and revokes the
	// member's existing tokens.
	ResetPassword(ctx context.Context, staffID, resetBy int64) error

	SetStatus(ctx context.Context, staffID int64, status models.Status, changedBy int64) (*models.StaffUser, error)
	List(ctx context.Context) ([]models.StaffUser, error)
	GetByID(ctx context.Context, id int64) (*models.StaffUser, error)
}

type Options struct {
	OTPExpiry      time.Duration
	OTPMaxAttempts int
	OTPTestCode    string
}

type staffService struct {
	repo     repository.StaffRepository
	tokens   *token.Manager
	notifier notify.Notifier
	opts     Options
}

func NewStaffService(repo repository.StaffRepository, tokens *token.Manager, notifier notify.Notifier, opts Options) StaffService {
	return &staffService{repo: repo, tokens: tokens, notifier: notifier, opts: opts}
}

func (s *staffService) Authenticate(ctx context.Context, username, password string) (string, *models.StaffUser, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load staff user: %w", err)
	}
	if user == nil {
		return "", nil, models.ErrInvalidCredentials
	}
	if user.Status != models.StatusActive {
		return "", nil, models.ErrAccountDisabled
	}
	if !secrets.VerifySecret(password, user.PasswordHash) {
		return "", nil, models.ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(user.ID, user.Username, string(user.Role))
	if err != nil {
		return "", nil, err
	}

	logger.Info().Str("username", user.Username).Msg("staff authenticated")
	return signed, user, nil
}

func (s *staffService) Logout(ctx context.Context, userID int64) error {
	return s.tokens.Revoke(ctx, userID)
}

func (s *staffService) SendEmailVerification(ctx context.Context, email string) error {
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return models.ErrEmailExists
	}

	code, err := secrets.GenerateOTP(s.opts.OTPTestCode)
	if err != nil {
		return err
	}
	hash, err := secrets.HashSecret(code)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.opts.OTPExpiry)
	if err := s.repo.CreateEmailVerification(ctx, email, hash, expiresAt); err != nil {
		return err
	}

	return s.notifier.SendOTP(ctx, notify.ChannelEmail, email, code)
}

func (s *staffService) VerifyEmail(ctx context.Context, email, code string) error {
	record, err := s.repo.LatestEmailVerification(ctx, email)
	if err != nil {
		return err
	}
	if record == nil {
		return models.ErrVerificationMissing
	}
	if time.Now().After(record.ExpiresAt) {
		return models.ErrVerificationExpired
	}
	if record.Attempts >= s.opts.OTPMaxAttempts {
		return models.ErrTooManyAttempts
	}

	// Every check costs an attempt, matching or not.
	if err := s.repo.IncrementVerificationAttempts(ctx, record.ID); err != nil {
		return err
	}

	if !secrets.VerifySecret(code, record.CodeHash) {
		return models.ErrInvalidCode
	}

	return s.repo.MarkEmailVerified(ctx, record.ID)
}

func (s *staffService) Create(ctx context.Context, firstName, lastName, email string, role models.Role, createdBy int64) (*models.StaffUser, error) {
	verified, err := s.repo.IsEmailVerified(ctx, email)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, models.ErrEmailNotVerified
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrEmailExists
	}

	username, err := s.uniqueUsername(ctx, firstName, lastName)
	if err != nil {
		return nil, err
	}

	password, err := secrets.GeneratePassword()
	if err != nil {
		return nil, err
	}
	hash, err := secrets.HashSecret(password)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &models.StaffUser{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}, createdBy)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendCredentials(ctx, created.Email, created.Username, password); err != nil {
		logger.Error().Err(err).Str("username", created.Username).Msg("failed to dispatch staff credentials")
	}

	logger.Info().Str("username", created.Username).Str("role", string(role)).Msg("staff created")
	return created, nil
}

func (s *staffService) uniqueUsername(ctx context.Context, firstName, lastName string) (string, error) {
	for {
		candidate, err := secrets.GenerateUsername(firstName, lastName)
		if err != nil {
			return "", err
		}
		taken, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func (s *staffService) ResetPassword(ctx context.Context, staffID, resetBy int64) error {
	user, err := s.repo.GetByID(ctx, staffID)
	if err != nil {
		return err
	}
	if user == nil {
		return models.ErrNotFound
	}

	password, err := secrets.GeneratePassword()
	if err != nil {
		return err
	}
	hash, err := secrets.HashSecret(password)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, staffID, hash, resetBy); err != nil {
		return err
	}

	// Every session issued before the reset must die with it.
	if err := s.tokens.Revoke(ctx, staffID); err != nil {
		return fmt.Errorf("password updated but revocation failed: %w", err)
	}

	if err := s.notifier.SendCredentials(ctx, user.Email, user.Username, password); err != nil {
		logger.Error().Err(err).Str("username", user.Username).Msg("failed to dispatch reset credentials")
	}
	return nil
}

func (s *staffService) SetStatus(ctx context.Context, staffID int64, status models.Status, changedBy int64) (*models.StaffUser, error) {
	updated, err := s.repo.SetStatus(ctx, staffID, status, changedBy)
	if err != nil {
		return nil, err
	}

	if status == models.StatusDisabled {
		if err := s.tokens.Revoke(ctx, staffID); err != nil {
			return nil, fmt.Errorf("status updated but revocation failed: %w", err)
		}
	}
	return updated, nil
}

func (s *staffService) List(ctx context.Context) ([]models.StaffUser, error) {
	return s.repo.List(ctx)
}

func (s *staffService) GetByID(ctx context.Context, id int64) (*models.StaffUser, error) {
	return s.repo.GetByID(ctx, id)
}

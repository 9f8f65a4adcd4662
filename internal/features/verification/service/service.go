package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"loyalty-promo-backend/internal/common/kv"
	"loyalty-promo-backend/internal/common/logger"
	"loyalty-promo-backend/internal/common/secrets"
	"loyalty-promo-backend/internal/features/verification/models"
	"loyalty-promo-backend/internal/notify"
)

// VerificationService drives the two-step OTP flow for a pending
// participant registration. Phone and email are independent OTP
// pipelines sharing one session envelope, so either channel can be
// retried without re-entering participant info.
type VerificationService interface {
	Start(ctx context.Context, phone, email string) (string, error)
	SendPhoneCode(ctx context.Context, sessionID string) error
	VerifyPhoneCode(ctx context.Context, sessionID, code string) error
	SendEmailCode(ctx context.Context, sessionID string) error
	VerifyEmailCode(ctx context.Context, sessionID, code string) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	IsComplete(ctx context.Context, sessionID string) (bool, error)
	Consume(ctx context.Context, sessionID string) (*models.Session, error)
}

type Options struct {
	TTL         time.Duration
	MaxAttempts int
	// ResendCooldown is the minimum wait between two dispatches to the
	// same contact. Zero disables the throttle.
	ResendCooldown time.Duration
	// TestCode forces deterministic OTPs; empty in production.
	TestCode string
}

type verificationService struct {
	store    kv.Store
	notifier notify.Notifier
	opts     Options
}

func NewVerificationService(store kv.Store, notifier notify.Notifier, opts Options) VerificationService {
	return &verificationService{store: store, notifier: notifier, opts: opts}
}

func sessionKey(id string) string { return "session:verify:" + id }

func otpKey(channel notify.Channel, contact string) string {
	return fmt.Sprintf("otp:%s:%s", channel, contact)
}

func attemptsKey(channel notify.Channel, contact string) string {
	return fmt.Sprintf("attempts:%s:%s", channel, contact)
}

func resendKey(channel notify.Channel, contact string) string {
	return fmt.Sprintf("resend:%s:%s", channel, contact)
}

func (s *verificationService) Start(ctx context.Context, phone, email string) (string, error) {
	id, err := secrets.GenerateSessionID()
	if err != nil {
		return "", err
	}

	session := models.Session{Phone: phone, Email: email, State: models.StateInfoSubmitted}
	if err := s.save(ctx, id, &session); err != nil {
		return "", err
	}

	logger.Debug().Str("session_id", id).Msg("verification session started")
	return id, nil
}

func (s *verificationService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	raw, err := s.store.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("malformed verification session: %w", err)
	}
	return &session, nil
}

// save rewrites the session with the full TTL. Every successful step
// resets the expiry window.
func (s *verificationService) save(ctx context.Context, sessionID string, session *models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, sessionKey(sessionID), string(raw), s.opts.TTL)
}

func (s *verificationService) SendPhoneCode(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.sendCode(ctx, notify.ChannelPhone, session.Phone)
}

func (s *verificationService) SendEmailCode(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.PhoneVerified() {
		return models.ErrInvalidTransition
	}
	return s.sendCode(ctx, notify.ChannelEmail, session.Email)
}

func (s *verificationService) sendCode(ctx context.Context, channel notify.Channel, contact string) error {
	attempts, err := s.attempts(ctx, channel, contact)
	if err != nil {
		return err
	}
	if attempts >= int64(s.opts.MaxAttempts) {
		return models.ErrTooManyAttempts
	}

	// The cooldown key expires on its own; a second dispatch to the
	// same contact inside the window bumps the counter past one.
	if s.opts.ResendCooldown > 0 {
		sends, err := s.store.Incr(ctx, resendKey(channel, contact), s.opts.ResendCooldown)
		if err != nil {
			return err
		}
		if sends > 1 {
			return models.ErrResendCooldown
		}
	}

	code, err := secrets.GenerateOTP(s.opts.TestCode)
	if err != nil {
		return err
	}
	hash, err := secrets.HashSecret(code)
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, otpKey(channel, contact), hash, s.opts.TTL); err != nil {
		return err
	}

	if err := s.notifier.SendOTP(ctx, channel, contact, code); err != nil {
		return fmt.Errorf("failed to dispatch code: %w", err)
	}
	return nil
}

func (s *verificationService) VerifyPhoneCode(ctx context.Context, sessionID, code string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State != models.StateInfoSubmitted {
		return models.ErrInvalidTransition
	}

	if err := s.checkCode(ctx, notify.ChannelPhone, session.Phone, code); err != nil {
		return err
	}

	session.State = models.StatePhoneVerified
	return s.save(ctx, sessionID, session)
}

func (s *verificationService) VerifyEmailCode(ctx context.Context, sessionID, code string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State != models.StatePhoneVerified {
		return models.ErrInvalidTransition
	}

	if err := s.checkCode(ctx, notify.ChannelEmail, session.Email, code); err != nil {
		return err
	}

	session.State = models.StateEmailVerified
	return s.save(ctx, sessionID, session)
}

// checkCode consumes one guess for the contact. The counter increments
// on every call, success included, so it bounds total guesses rather
// than failed ones.
func (s *verificationService) checkCode(ctx context.Context, channel notify.Channel, contact, code string) error {
	attempts, err := s.store.Incr(ctx, attemptsKey(channel, contact), s.opts.TTL)
	if err != nil {
		return err
	}
	if attempts > int64(s.opts.MaxAttempts) {
		return models.ErrTooManyAttempts
	}

	hash, err := s.store.Get(ctx, otpKey(channel, contact))
	if errors.Is(err, kv.ErrNotFound) {
		return models.ErrInvalidCode
	}
	if err != nil {
		return err
	}

	if !secrets.VerifySecret(code, hash) {
		return models.ErrInvalidCode
	}

	// One-time use: drop the code and the guess budget together.
	if err := s.store.Delete(ctx, otpKey(channel, contact)); err != nil {
		return err
	}
	return s.store.Delete(ctx, attemptsKey(channel, contact))
}

func (s *verificationService) attempts(ctx context.Context, channel notify.Channel, contact string) (int64, error) {
	raw, err := s.store.Get(ctx, attemptsKey(channel, contact))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *verificationService) IsComplete(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.Get(ctx, sessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return session.Complete(), nil
}

// Consume marks a completed session as used by registration. The
// record stays in the store until TTL eviction but can no longer
// complete another registration.
func (s *verificationService) Consume(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Complete() {
		return nil, models.ErrNotComplete
	}

	session.State = models.StateConsumed
	if err := s.save(ctx, sessionID, session); err != nil {
		return nil, err
	}
	return session, nil
}

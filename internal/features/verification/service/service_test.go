package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loyalty-promo-backend/internal/common/kv"
	"loyalty-promo-backend/internal/features/verification/models"
	"loyalty-promo-backend/internal/notify"
)

const testCode = "123456"

type captureNotifier struct {
	notify.LogNotifier
	otps []string
}

func (n *captureNotifier) SendOTP(_ context.Context, _ notify.Channel, contact, code string) error {
	n.otps = append(n.otps, contact+":"+code)
	return nil
}

func newTestService() (VerificationService, *captureNotifier, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	notifier := &captureNotifier{}
	svc := NewVerificationService(store, notifier, Options{
		TTL:         10 * time.Minute,
		MaxAttempts: 3,
		TestCode:    testCode,
	})
	return svc, notifier, store
}

func startSession(t *testing.T, svc VerificationService) string {
	t.Helper()
	id, err := svc.Start(context.Background(), "995555123456", "a@b.com")
	require.NoError(t, err)
	return id
}

func TestStartAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	id := startSession(t, svc)

	session, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "995555123456", session.Phone)
	require.Equal(t, "a@b.com", session.Email)
	require.Equal(t, models.StateInfoSubmitted, session.State)
	require.False(t, session.PhoneVerified())

	complete, err := svc.IsComplete(ctx, id)
	require.NoError(t, err)
	require.False(t, complete)
}

func TestGetUnknownSession(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Get(context.Background(), "deadbeef")
	require.ErrorIs(t, err, models.ErrSessionNotFound)

	err = svc.SendPhoneCode(context.Background(), "deadbeef")
	require.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestFullVerificationFlow(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService()

	id := startSession(t, svc)

	require.NoError(t, svc.SendPhoneCode(ctx, id))
	require.Len(t, notifier.otps, 1)

	require.NoError(t, svc.VerifyPhoneCode(ctx, id, testCode))

	session, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.StatePhoneVerified, session.State)

	complete, err := svc.IsComplete(ctx, id)
	require.NoError(t, err)
	require.False(t, complete, "phone alone does not complete the session")

	require.NoError(t, svc.SendEmailCode(ctx, id))
	require.NoError(t, svc.VerifyEmailCode(ctx, id, testCode))

	complete, err = svc.IsComplete(ctx, id)
	require.NoError(t, err)
	require.True(t, complete)

	consumed, err := svc.Consume(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.StateConsumed, consumed.State)

	// A consumed session cannot complete a second registration.
	_, err = svc.Consume(ctx, id)
	require.ErrorIs(t, err, models.ErrNotComplete)

	complete, err = svc.IsComplete(ctx, id)
	require.NoError(t, err)
	require.False(t, complete)
}

func TestVerifyPhoneWrongCode(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	id := startSession(t, svc)
	require.NoError(t, svc.SendPhoneCode(ctx, id))

	err := svc.VerifyPhoneCode(ctx, id, "000000")
	require.ErrorIs(t, err, models.ErrInvalidCode)

	session, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, session.PhoneVerified())

	// The right code still works while attempts remain.
	require.NoError(t, svc.VerifyPhoneCode(ctx, id, testCode))
}

func TestVerifyWithoutSentCode(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	id := startSession(t, svc)
	err := svc.VerifyPhoneCode(ctx, id, testCode)
	require.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestCodeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	id := startSession(t, svc)
	require.NoError(t, svc.SendPhoneCode(ctx, id))
	require.NoError(t, svc.VerifyPhoneCode(ctx, id, testCode))

	err := svc.VerifyPhoneCode(ctx, id, testCode)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestEmailBeforePhoneRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	id := startSession(t, svc)

	err := svc.SendEmailCode(ctx, id)
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	err = svc.VerifyEmailCode(ctx, id, testCode)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func newThrottledService() (VerificationService, *captureNotifier, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	notifier := &captureNotifier{}
	svc := NewVerificationService(store, notifier, Options{
		TTL:            10 * time.Minute,
		MaxAttempts:    3,
		ResendCooldown: time.Minute,
		TestCode:       testCode,
	})
	return svc, notifier, store
}

func TestResendCooldownThrottlesDispatch(t *testing.T) {
	ctx := context.Background()
	svc, notifier, store := newThrottledService()

	id := startSession(t, svc)
	require.NoError(t, svc.SendPhoneCode(ctx, id))

	// Hammering the resend endpoint must not produce more dispatches.
	for i := 0; i < 9; i++ {
		err := svc.SendPhoneCode(ctx, id)
		require.ErrorIs(t, err, models.ErrResendCooldown)
	}
	require.Len(t, notifier.otps, 1)

	// Once the cooldown key lapses a resend goes through again.
	require.NoError(t, store.Delete(ctx, "resend:phone:995555123456"))
	require.NoError(t, svc.SendPhoneCode(ctx, id))
	require.Len(t, notifier.otps, 2)
}

func TestResendCooldownIsPerChannel(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newThrottledService()

	id := startSession(t, svc)
	require.NoError(t, svc.SendPhoneCode(ctx, id))
	require.NoError(t, svc.VerifyPhoneCode(ctx, id, testCode))

	// The phone cooldown does not block the first email dispatch.
	require.NoError(t, svc.SendEmailCode(ctx, id))
	require.ErrorIs(t, svc.SendEmailCode(ctx, id), models.ErrResendCooldown)
	require.Len(t, notifier.otps, 2)
}

func TestAttemptLimitBoundsTotalGuesses(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	id := startSession(t, svc)
	require.NoError(t, svc.SendPhoneCode(ctx, id))

	for i := 0; i < 3; i++ {
		err := svc.VerifyPhoneCode(ctx, id, "000000")
		require.ErrorIs(t, err, models.ErrInvalidCode)
	}

	// Budget exhausted: even the correct code is refused now.
	err := svc.VerifyPhoneCode(ctx, id, testCode)
	require.ErrorIs(t, err, models.ErrTooManyAttempts)

	// Resends are refused for the same contact too.
	err = svc.SendPhoneCode(ctx, id)
	require.ErrorIs(t, err, models.ErrTooManyAttempts)
}

func TestAttemptLimitIsPerContactNotPerSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	first := startSession(t, svc)
	require.NoError(t, svc.SendPhoneCode(ctx, first))
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, svc.VerifyPhoneCode(ctx, first, "000000"), models.ErrInvalidCode)
	}

	// A fresh session against the same phone number does not reset the
	// guess budget.
	second, err := svc.Start(ctx, "995555123456", "other@b.com")
	require.NoError(t, err)
	err = svc.SendPhoneCode(ctx, second)
	require.ErrorIs(t, err, models.ErrTooManyAttempts)
}

func TestConsumeIncompleteSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	id := startSession(t, svc)
	_, err := svc.Consume(ctx, id)
	require.ErrorIs(t, err, models.ErrNotComplete)
}

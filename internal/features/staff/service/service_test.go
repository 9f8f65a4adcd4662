package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loyalty-promo-backend/internal/common/kv"
	"loyalty-promo-backend/internal/common/secrets"
	"loyalty-promo-backend/internal/common/token"
	"loyalty-promo-backend/internal/features/staff/models"
	"loyalty-promo-backend/internal/notify"
)

const testOTP = "123456"

type fakeStaffRepo struct {
	users         map[int64]*models.StaffUser
	verifications []*models.EmailVerification
	verified      map[string]bool
	nextID        int64
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{
		users:    map[int64]*models.StaffUser{},
		verified: map[string]bool{},
	}
}

func (r *fakeStaffRepo) add(u models.StaffUser) *models.StaffUser {
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	r.users[u.ID] = &u
	return r.users[u.ID]
}

func (r *fakeStaffRepo) GetByUsername(_ context.Context, username string) (*models.StaffUser, error) {
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id int64) (*models.StaffUser, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeStaffRepo) List(context.Context) ([]models.StaffUser, error) { return nil, nil }

func (r *fakeStaffRepo) EmailExists(_ context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeStaffRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	u, err := r.GetByUsername(context.Background(), username)
	return u != nil, err
}

func (r *fakeStaffRepo) Create(_ context.Context, u *models.StaffUser, _ int64) (*models.StaffUser, error) {
	created := *u
	created.Status = models.StatusActive
	return r.add(created), nil
}

func (r *fakeStaffRepo) UpdatePassword(_ context.Context, id int64, passwordHash string, _ int64) error {
	u, ok := r.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeStaffRepo) SetStatus(_ context.Context, id int64, status models.Status, _ int64) (*models.StaffUser, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u.Status = status
	copied := *u
	return &copied, nil
}

func (r *fakeStaffRepo) CreateEmailVerification(_ context.Context, email, codeHash string, expiresAt time.Time) error {
	r.verifications = append(r.verifications, &models.EmailVerification{
		ID:        int64(len(r.verifications) + 1),
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *fakeStaffRepo) LatestEmailVerification(_ context.Context, email string) (*models.EmailVerification, error) {
	for i := len(r.verifications) - 1; i >= 0; i-- {
		if r.verifications[i].Email == email && !r.verifications[i].Verified {
			return r.verifications[i], nil
		}
	}
	return nil, nil
}

func (r *fakeStaffRepo) IncrementVerificationAttempts(_ context.Context, id int64) error {
	for _, v := range r.verifications {
		if v.ID == id {
			v.Attempts++
			return nil
		}
	}
	return models.ErrVerificationMissing
}

func (r *fakeStaffRepo) MarkEmailVerified(_ context.Context, id int64) error {
	for _, v := range r.verifications {
		if v.ID == id {
			v.Verified = true
			r.verified[v.Email] = true
			return nil
		}
	}
	return models.ErrVerificationMissing
}

func (r *fakeStaffRepo) IsEmailVerified(_ context.Context, email string) (bool, error) {
	return r.verified[email], nil
}

type credentialRecorder struct {
	notify.LogNotifier
	passwords []string
}

func (n *credentialRecorder) SendCredentials(_ context.Context, _, _, password string) error {
	n.passwords = append(n.passwords, password)
	return nil
}

func newTestService() (StaffService, *fakeStaffRepo, *token.Manager, *credentialRecorder) {
	repo := newFakeStaffRepo()
	tokens := token.NewManager("test-secret", 8*time.Hour,
		token.NewKVRevoker(kv.NewMemoryStore(), 8*time.Hour))
	notifier := &credentialRecorder{}
	svc := NewStaffService(repo, tokens, notifier, Options{
		OTPExpiry:      10 * time.Minute,
		OTPMaxAttempts: 3,
		OTPTestCode:    testOTP,
	})
	return svc, repo, tokens, notifier
}

func seedUser(t *testing.T, repo *fakeStaffRepo, password string) *models.StaffUser {
	t.Helper()
	hash, err := secrets.HashSecret(password)
	require.NoError(t, err)
	return repo.add(models.StaffUser{
		FirstName:    "Ana",
		LastName:     "Admin",
		Email:        "ana@example.com",
		Username:     "ana.admin1",
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Status:       models.StatusActive,
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens, _ := newTestService()
	user := seedUser(t, repo, "correct horse")

	signed, authed, err := svc.Authenticate(ctx, user.Username, "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)

	claims, err := tokens.Validate(ctx, signed)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, string(models.RoleSuperAdmin), claims.Role)
}

func TestAuthenticateRejections(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()
	user := seedUser(t, repo, "correct horse")

	_, _, err := svc.Authenticate(ctx, "nobody", "correct horse")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = svc.Authenticate(ctx, user.Username, "wrong password")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	repo.users[user.ID].Status = models.StatusDisabled
	_, _, err = svc.Authenticate(ctx, user.Username, "correct horse")
	require.ErrorIs(t, err, models.ErrAccountDisabled)
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens, _ := newTestService()
	user := seedUser(t, repo, "correct horse")

	signed, _, err := svc.Authenticate(ctx, user.Username, "correct horse")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, svc.Logout(ctx, user.ID))

	_, err = tokens.Validate(ctx, signed)
	require.ErrorIs(t, err, token.ErrTokenRevoked)
}

func TestEmailVerificationFlow(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()

	require.NoError(t, svc.SendEmailVerification(ctx, "new@example.com"))

	err := svc.VerifyEmail(ctx, "new@example.com", "000000")
	require.ErrorIs(t, err, models.ErrInvalidCode)

	require.NoError(t, svc.VerifyEmail(ctx, "new@example.com", testOTP))

	verified, err := repo.IsEmailVerified(ctx, "new@example.com")
	require.NoError(t, err)
	require.True(t, verified)
}

func TestVerifyEmailAttemptLimit(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	require.NoError(t, svc.SendEmailVerification(ctx, "new@example.com"))

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, svc.VerifyEmail(ctx, "new@example.com", "000000"), models.ErrInvalidCode)
	}
	// The correct code no longer helps once the budget is spent.
	require.ErrorIs(t, svc.VerifyEmail(ctx, "new@example.com", testOTP), models.ErrTooManyAttempts)
}

func TestVerifyEmailMissingAndExpired(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()

	err := svc.VerifyEmail(ctx, "nobody@example.com", testOTP)
	require.ErrorIs(t, err, models.ErrVerificationMissing)

	require.NoError(t, svc.SendEmailVerification(ctx, "new@example.com"))
	repo.verifications[0].ExpiresAt = time.Now().Add(-time.Minute)
	err = svc.VerifyEmail(ctx, "new@example.com", testOTP)
	require.ErrorIs(t, err, models.ErrVerificationExpired)
}

func TestSendEmailVerificationExistingAccount(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()
	seedUser(t, repo, "correct horse")

	err := svc.SendEmailVerification(ctx, "ana@example.com")
	require.ErrorIs(t, err, models.ErrEmailExists)
}

func TestCreateRequiresVerifiedEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	_, err := svc.Create(ctx, "Bob", "Builder", "bob@example.com", models.RoleStaff, 1)
	require.ErrorIs(t, err, models.ErrEmailNotVerified)
}

func TestCreateIssuesCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _, _, notifier := newTestService()

	require.NoError(t, svc.SendEmailVerification(ctx, "bob@example.com"))
	require.NoError(t, svc.VerifyEmail(ctx, "bob@example.com", testOTP))

	created, err := svc.Create(ctx, "Bob", "Builder", "bob@example.com", models.RoleStaff, 1)
	require.NoError(t, err)
	require.Regexp(t, `^bob\.builder\d{1,3}$`, created.Username)
	require.Equal(t, models.RoleStaff, created.Role)
	require.Len(t, notifier.passwords, 1)

	// The mailed password must actually open the account.
	_, _, err = svc.Authenticate(ctx, created.Username, notifier.passwords[0])
	require.NoError(t, err)
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens, notifier := newTestService()
	user := seedUser(t, repo, "correct horse")

	signed, _, err := svc.Authenticate(ctx, user.Username, "correct horse")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, svc.ResetPassword(ctx, user.ID, 1))

	// Old token and old password are both dead.
	_, err = tokens.Validate(ctx, signed)
	require.ErrorIs(t, err, token.ErrTokenRevoked)
	_, _, err = svc.Authenticate(ctx, user.Username, "correct horse")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	require.Len(t, notifier.passwords, 1)
	_, _, err = svc.Authenticate(ctx, user.Username, notifier.passwords[0])
	require.NoError(t, err)
}

func TestDisableRevokesSessions(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens, _ := newTestService()
	user := seedUser(t, repo, "correct horse")

	signed, _, err := svc.Authenticate(ctx, user.Username, "correct horse")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	updated, err := svc.SetStatus(ctx, user.ID, models.StatusDisabled, 1)
	require.NoError(t, err)
	require.Equal(t, models.StatusDisabled, updated.Status)

	_, err = tokens.Validate(ctx, signed)
	require.ErrorIs(t, err, token.ErrTokenRevoked)

	_, err = svc.SetStatus(ctx, user.ID, models.StatusActive, 1)
	require.NoError(t, err)
	_, _, err = svc.Authenticate(ctx, user.Username, "correct horse")
	require.NoError(t, err)
}

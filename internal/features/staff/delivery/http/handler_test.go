package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"loyalty-promo-backend/internal/common/kv"
	"loyalty-promo-backend/internal/common/middleware"
	"loyalty-promo-backend/internal/common/token"
	"loyalty-promo-backend/internal/features/staff/models"
)

type fakeStaffService struct {
	tokens    *token.Manager
	user      *models.StaffUser
	password  string
	loggedOut []int64
}

func (s *fakeStaffService) Authenticate(_ context.Context, username, password string) (string, *models.StaffUser, error) {
	if s.user == nil || username != s.user.Username || password != s.password {
		return "", nil, models.ErrInvalidCredentials
	}
	if s.user.Status != models.StatusActive {
		return "", nil, models.ErrAccountDisabled
	}
	signed, err := s.tokens.Issue(s.user.ID, s.user.Username, string(s.user.Role))
	return signed, s.user, err
}

func (s *fakeStaffService) Logout(ctx context.Context, userID int64) error {
	s.loggedOut = append(s.loggedOut, userID)
	return s.tokens.Revoke(ctx, userID)
}

func (s *fakeStaffService) SendEmailVerification(context.Context, string) error { return nil }
func (s *fakeStaffService) VerifyEmail(context.Context, string, string) error   { return nil }

func (s *fakeStaffService) Create(context.Context, string, string, string, models.Role, int64) (*models.StaffUser, error) {
	return nil, models.ErrEmailNotVerified
}

func (s *fakeStaffService) ResetPassword(context.Context, int64, int64) error { return nil }

func (s *fakeStaffService) SetStatus(_ context.Context, _ int64, status models.Status, _ int64) (*models.StaffUser, error) {
	s.user.Status = status
	return s.user, nil
}

func (s *fakeStaffService) List(context.Context) ([]models.StaffUser, error) {
	return []models.StaffUser{*s.user}, nil
}

func (s *fakeStaffService) GetByID(_ context.Context, id int64) (*models.StaffUser, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, nil
}

func newTestRouter() (*gin.Engine, *fakeStaffService) {
	gin.SetMode(gin.TestMode)

	tokens := token.NewManager("test-secret", time.Hour,
		token.NewKVRevoker(kv.NewMemoryStore(), time.Hour))
	svc := &fakeStaffService{
		tokens:   tokens,
		password: "correct horse",
		user: &models.StaffUser{
			ID:       1,
			Username: "ana.admin1",
			Email:    "ana@example.com",
			Role:     models.RoleSuperAdmin,
			Status:   models.StatusActive,
		},
	}

	router := gin.New()
	v1 := router.Group("/api/v1")
	authed := v1.Group("", middleware.RequireAuth(tokens))
	admin := authed.Group("", middleware.RequireRole(string(models.RoleSuperAdmin)))

	h := NewStaffHandler(svc)
	loginLimit := middleware.RateLimit(kv.NewMemoryStore(), "ratelimit:login", 5, 15*time.Minute)
	h.RegisterAuthRoutes(v1, authed, loginLimit)
	h.RegisterAdminRoutes(admin)
	return router, svc
}

func doJSON(router *gin.Engine, method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()
	rec := doJSON(router, http.MethodPost, "/api/v1/auth/login",
		`{"username":"`+username+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestLogin(t *testing.T) {
	router, _ := newTestRouter()
	login(t, router, "ana.admin1", "correct horse")
}

func TestLoginRejections(t *testing.T) {
	router, svc := newTestRouter()

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/login",
		`{"username":"ana.admin1","password":"wrong"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"ana.admin1"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	svc.user.Status = models.StatusDisabled
	rec = doJSON(router, http.MethodPost, "/api/v1/auth/login",
		`{"username":"ana.admin1","password":"correct horse"}`, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginBruteForceThrottled(t *testing.T) {
	router, _ := newTestRouter()

	for i := 0; i < 5; i++ {
		rec := doJSON(router, http.MethodPost, "/api/v1/auth/login",
			`{"username":"ana.admin1","password":"wrong"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/login",
		`{"username":"ana.admin1","password":"wrong"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The limiter keys on the caller, not on the outcome, so even the
	// right password is refused until the window rolls over.
	rec = doJSON(router, http.MethodPost, "/api/v1/auth/login",
		`{"username":"ana.admin1","password":"correct horse"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMeRequiresToken(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(router, http.MethodGet, "/api/v1/auth/me", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(router, http.MethodGet, "/api/v1/auth/me", "", "not-a-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	tokenStr := login(t, router, "ana.admin1", "correct horse")
	rec = doJSON(router, http.MethodGet, "/api/v1/auth/me", "", tokenStr)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User models.StaffUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ana.admin1", resp.User.Username)
}

func TestLogoutKillsToken(t *testing.T) {
	router, svc := newTestRouter()

	tokenStr := login(t, router, "ana.admin1", "correct horse")
	time.Sleep(10 * time.Millisecond)

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/logout", "", tokenStr)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{1}, svc.loggedOut)

	// The revoked token no longer passes the auth middleware.
	rec = doJSON(router, http.MethodGet, "/api/v1/auth/me", "", tokenStr)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	router, svc := newTestRouter()
	svc.user.Role = models.RoleStaff

	tokenStr := login(t, router, "ana.admin1", "correct horse")
	rec := doJSON(router, http.MethodGet, "/api/v1/staff", "", tokenStr)
	require.Equal(t, http.StatusForbidden, rec.Code)

	svc.user.Role = models.RoleSuperAdmin
	tokenStr = login(t, router, "ana.admin1", "correct horse")
	rec = doJSON(router, http.MethodGet, "/api/v1/staff", "", tokenStr)
	require.Equal(t, http.StatusOK, rec.Code)
}

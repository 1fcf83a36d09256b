package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apicontext "github.com/skillupng/lms-server/internal/api/http/context"
	"github.com/skillupng/lms-server/internal/model"
	"github.com/skillupng/lms-server/internal/service"
	"github.com/skillupng/lms-server/internal/testutil"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Signup(ctx context.Context, in service.SignupInput) (model.Summary, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.Summary), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, identifier, password string) (model.TokenPair, model.Summary, error) {
	args := m.Called(ctx, identifier, password)
	return args.Get(0).(model.TokenPair), args.Get(1).(model.Summary), args.Error(2)
}

func (m *mockAuthService) Refresh(ctx context.Context, rawRefresh string) (model.TokenPair, error) {
	args := m.Called(ctx, rawRefresh)
	return args.Get(0).(model.TokenPair), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, rawAccess, rawRefresh string) error {
	args := m.Called(ctx, rawAccess, rawRefresh)
	return args.Error(0)
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	args := m.Called(ctx, rawToken, newPassword, confirmPassword)
	return args.Error(0)
}

func (m *mockAuthService) Me(ctx context.Context, userID uuid.UUID) (model.Summary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Summary), args.Error(1)
}

func (m *mockAuthService) ListUsers(ctx context.Context) ([]model.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Summary), args.Error(1)
}

type handlerFixture struct {
	engine      *gin.Engine
	authService *mockAuthService
	ctxMgr      *apicontext.Manager
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService := &mockAuthService{}
	ctxMgr := apicontext.NewManager()
	h := NewAuth(authService, ctxMgr, testutil.MakeNoopLogger(), 168*time.Hour, false)

	engine := gin.New()
	engine.POST("/auth/signup", h.Signup)
	engine.POST("/auth/login", h.Login)
	engine.POST("/auth/refresh", h.Refresh)
	engine.POST("/auth/logout", h.Logout)
	engine.POST("/auth/forgot-password", h.ForgotPassword)
	engine.POST("/auth/reset-password/:token", h.ResetPassword)
	engine.GET("/auth/me", h.Me)
	engine.GET("/admin/users", h.ListUsers)

	return &handlerFixture{engine: engine, authService: authService, ctxMgr: ctxMgr}
}

func (f *handlerFixture) do(method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Signup(t *testing.T) {
	f := newHandlerFixture(t)

	summary := model.Summary{ID: uuid.New(), Username: "ada"}
	f.authService.On("Signup", mock.Anything, mock.MatchedBy(func(in service.SignupInput) bool {
		return in.Username == "ada" && in.Password == "password123"
	})).Return(summary, nil).Once()

	rec := f.do(http.MethodPost, "/auth/signup", gin.H{
		"name": "Ada", "username": "ada", "email": "ada@example.com", "password": "password123",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), summary.ID.String())
}

func TestAuthHandler_Login_SetsRefreshCookie(t *testing.T) {
	f := newHandlerFixture(t)

	pair := model.TokenPair{AccessToken: "access", RefreshToken: "refresh"}
	summary := model.Summary{ID: uuid.New(), Username: "ada"}
	f.authService.On("Login", mock.Anything, "ada", "pw123456").Return(pair, summary, nil).Once()

	rec := f.do(http.MethodPost, "/auth/login", gin.H{"identifier": "ada", "password": "pw123456"})

	require.Equal(t, http.StatusOK, rec.Code)

	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "refresh", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.InDelta(t, int((168 * time.Hour).Seconds()), cookie.MaxAge, 1)

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "access", body.AccessToken)
}

func TestAuthHandler_Login_UsernameFallback(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("Login", mock.Anything, "ada@example.com", "pw123456").
		Return(model.TokenPair{}, model.Summary{}, nil).Once()

	rec := f.do(http.MethodPost, "/auth/login", gin.H{"email": "ada@example.com", "password": "pw123456"})

	assert.Equal(t, http.StatusOK, rec.Code)
	f.authService.AssertExpectations(t)
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/auth/login", gin.H{"password": "pw123456"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.authService.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_Login_LockedAccount(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("Login", mock.Anything, "ada", "wrong").
		Return(model.TokenPair{}, model.Summary{}, &model.AccountLockedError{RetryAfterMinutes: 12}).Once()

	rec := f.do(http.MethodPost, "/auth/login", gin.H{"identifier": "ada", "password": "wrong"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "12 minutes")
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("Login", mock.Anything, "ada", "wrong").
		Return(model.TokenPair{}, model.Summary{}, model.ErrInvalidCredentials).Once()

	rec := f.do(http.MethodPost, "/auth/login", gin.H{"identifier": "ada", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestAuthHandler_Refresh_FromCookie(t *testing.T) {
	f := newHandlerFixture(t)

	pair := model.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}
	f.authService.On("Refresh", mock.Anything, "old-refresh").Return(pair, nil).Once()

	rec := f.do(http.MethodPost, "/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old-refresh"})
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "new-access")

	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "new-refresh", cookie.Value)
}

func TestAuthHandler_Refresh_HeaderWinsOverCookie(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("Refresh", mock.Anything, "header-token").
		Return(model.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil).Once()

	rec := f.do(http.MethodPost, "/auth/refresh", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "cookie-token"})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	f.authService.AssertExpectations(t)
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/auth/refresh", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Refresh token required")
}

func TestAuthHandler_Refresh_ConsumedToken(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("Refresh", mock.Anything, "replayed").
		Return(model.TokenPair{}, model.ErrTokenInvalid).Once()

	rec := f.do(http.MethodPost, "/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "replayed"})
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("Logout", mock.Anything, "access", "refresh").Return(nil).Once()

	rec := f.do(http.MethodPost, "/auth/logout", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer access")
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "refresh"})
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Successfully logged out")

	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestAuthHandler_Logout_MissingToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.authService.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("RequestPasswordReset", mock.Anything, "ada@example.com").Return(nil).Once()

	rec := f.do(http.MethodPost, "/auth/forgot-password", gin.H{"email": "ada@example.com"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reset link")
}

func TestAuthHandler_ForgotPassword_SendFailure(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("RequestPasswordReset", mock.Anything, "ada@example.com").
		Return(&model.NotificationError{Err: assert.AnError}).Once()

	rec := f.do(http.MethodPost, "/auth/forgot-password", gin.H{"email": "ada@example.com"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to send email")
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("ResetPassword", mock.Anything, "raw-token", "newpassword", "newpassword").
		Return(nil).Once()

	rec := f.do(http.MethodPost, "/auth/reset-password/raw-token", gin.H{
		"password": "newpassword", "confirmPassword": "newpassword",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password reset successfully")
}

func TestAuthHandler_ResetPassword_Mismatch(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("ResetPassword", mock.Anything, "raw-token", "one", "two").
		Return(model.ErrPasswordMismatch).Once()

	rec := f.do(http.MethodPost, "/auth/reset-password/raw-token", gin.H{
		"password": "one", "confirmPassword": "two",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")
}

func TestAuthHandler_ResetPassword_InvalidToken(t *testing.T) {
	f := newHandlerFixture(t)

	f.authService.On("ResetPassword", mock.Anything, "stale", "newpassword", "newpassword").
		Return(model.ErrTokenInvalid).Once()

	rec := f.do(http.MethodPost, "/auth/reset-password/stale", gin.H{
		"password": "newpassword", "confirmPassword": "newpassword",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Me(t *testing.T) {
	f := newHandlerFixture(t)

	userID := uuid.New()
	summary := model.Summary{ID: userID, Username: "ada"}
	f.authService.On("Me", mock.Anything, userID).Return(summary, nil).Once()

	// Simulate the authentication middleware having run.
	f.engine.GET("/auth/me2", func(c *gin.Context) {
		f.ctxMgr.SetClaims(c, model.TokenClaims{UserID: userID})
	}, NewAuth(f.authService, f.ctxMgr, testutil.MakeNoopLogger(), time.Hour, false).Me)

	rec := f.do(http.MethodGet, "/auth/me2", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada")
}

func TestAuthHandler_Me_NoClaims(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodGet, "/auth/me", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_ListUsers(t *testing.T) {
	f := newHandlerFixture(t)

	users := []model.Summary{
		{ID: uuid.New(), Username: "ada"},
		{ID: uuid.New(), Username: "grace"},
	}
	f.authService.On("ListUsers", mock.Anything).Return(users, nil).Once()

	rec := f.do(http.MethodGet, "/admin/users", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grace")
}

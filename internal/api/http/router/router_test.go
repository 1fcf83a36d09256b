package router

import (
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
	"github.com/skillupng/lms-server/internal/config"
	"github.com/skillupng/lms-server/internal/mocks"
	"github.com/skillupng/lms-server/internal/model"
	"github.com/skillupng/lms-server/internal/service"
	"github.com/skillupng/lms-server/internal/testutil"
	"github.com/skillupng/lms-server/internal/token"
)

type routerFixture struct {
	engine      *gin.Engine
	manager     *token.Manager
	users       *mocks.UserStore
	revocations *mocks.RevocationStore
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	jwtConfig := config.JWT{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "skillup-lms",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 168 * time.Hour,
	}

	manager, err := token.NewManager(jwtConfig)
	require.NoError(t, err)

	users := &mocks.UserStore{}
	refreshes := &mocks.RefreshTokenStore{}
	revocations := &mocks.RevocationStore{}
	notifier := &mocks.Notifier{}

	log := testutil.MakeNoopLogger()
	tokenService := service.NewTokenService(manager, refreshes, revocations, log)
	authService, err := service.NewAuth(users, tokenService, notifier, log,
		config.Security{MaxFailedAttempts: 5, LockDurationMinutes: 15, ResetTokenExpiry: 10 * time.Minute},
		config.App{BaseURL: "https://app.test"},
	)
	require.NoError(t, err)

	r := New(authService, tokenService, apicontext.NewManager(), log, jwtConfig, false)

	return &routerFixture{
		engine:      r.Register(),
		manager:     manager,
		users:       users,
		revocations: revocations,
	}
}

func TestRouter_PublicRoutesRegistered(t *testing.T) {
	f := newRouterFixture(t)

	// A malformed body should reach the handler, not fall through to 404.
	for _, path := range []string{"/auth/signup", "/auth/login", "/auth/forgot-password"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()

		f.engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	f := newRouterFixture(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/auth/logout"},
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/admin/users"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()

		f.engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestRouter_AdminRouteEnforcesRole(t *testing.T) {
	f := newRouterFixture(t)

	studentToken, err := f.manager.GenerateAccessToken(model.TokenClaims{
		UserID: uuid.New(),
		Roles:  []model.Role{model.RoleStudent},
	})
	require.NoError(t, err)

	f.revocations.On("Contains", mock.Anything, studentToken).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	rec := httptest.NewRecorder()

	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_AdminRouteAllowsAdmin(t *testing.T) {
	f := newRouterFixture(t)

	adminToken, err := f.manager.GenerateAccessToken(model.TokenClaims{
		UserID: uuid.New(),
		Roles:  []model.Role{model.RoleAdmin},
	})
	require.NoError(t, err)

	f.revocations.On("Contains", mock.Anything, adminToken).Return(false, nil).Once()
	f.users.On("List", mock.Anything).Return([]model.User{{ID: uuid.New(), Username: "ada"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()

	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada")
}

func TestRouter_BlacklistedTokenRejected(t *testing.T) {
	f := newRouterFixture(t)

	accessToken, err := f.manager.GenerateAccessToken(model.TokenClaims{
		UserID: uuid.New(),
		Roles:  []model.Role{model.RoleStudent},
	})
	require.NoError(t, err)

	f.revocations.On("Contains", mock.Anything, accessToken).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()

	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

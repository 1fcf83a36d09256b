package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apicontext "github.com/skillupng/lms-server/internal/api/http/context"
	"github.com/skillupng/lms-server/internal/api/http/middleware"
	"github.com/skillupng/lms-server/internal/logger"
	"github.com/skillupng/lms-server/internal/model"
	"github.com/skillupng/lms-server/internal/service"
)

const refreshCookieName = "refreshToken"

// AuthService defines account and session operations.
type AuthService interface {
	Signup(ctx context.Context, in service.SignupInput) (model.Summary, error)
	Login(ctx context.Context, identifier, password string) (model.TokenPair, model.Summary, error)
	Refresh(ctx context.Context, rawRefresh string) (model.TokenPair, error)
	Logout(ctx context.Context, rawAccess, rawRefresh string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword, confirmPassword string) error
	Me(ctx context.Context, userID uuid.UUID) (model.Summary, error)
	ListUsers(ctx context.Context) ([]model.Summary, error)
}

type signupRequest struct {
	Name           string       `json:"name"`
	Username       string       `json:"username"`
	Email          string       `json:"email"`
	Password       string       `json:"password"`
	ProfilePicture string       `json:"profilePicture"`
	Roles          []model.Role `json:"roles"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// Auth handles HTTP endpoints for authentication and account recovery.
type Auth struct {
	authService    AuthService
	contextManager *apicontext.Manager
	logger         *logger.Logger
	refreshTTL     time.Duration
	secureCookies  bool
}

// NewAuth creates a new Auth handler.
func NewAuth(
	authService AuthService,
	contextManager *apicontext.Manager,
	logger *logger.Logger,
	refreshTTL time.Duration,
	secureCookies bool,
) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		logger:         logger,
		refreshTTL:     refreshTTL,
		secureCookies:  secureCookies,
	}
}

// Signup registers a new account.
func (h *Auth) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	summary, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Name:           req.Name,
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		ProfilePicture: req.ProfilePicture,
		Roles:          req.Roles,
	})
	if err != nil {
		h.logger.Error("Auth handler: signup failed", "error", err.Error())
		handleError(c, err)
		return
	}

	h.logger.Info("Auth handler: signup completed", "user_id", summary.ID)

	c.JSON(http.StatusCreated, gin.H{"user": summary})
}

// Login authenticates a user, sets the refresh cookie and returns the
// token pair.
func (h *Auth) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Username
	}
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username or email and password are required"})
		return
	}

	pair, summary, err := h.authService.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)

	h.logger.Info("Auth handler: login completed", "user_id", summary.ID)

	c.JSON(http.StatusOK, gin.H{
		"user":         summary,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Refresh rotates the refresh token presented in the Authorization
// header or the cookie and returns a new access token.
func (h *Auth) Refresh(c *gin.Context) {
	rawRefresh := middleware.BearerToken(c)
	if rawRefresh == "" {
		rawRefresh, _ = c.Cookie(refreshCookieName)
	}
	if rawRefresh == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token required"})
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), rawRefresh)
	if err != nil {
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)

	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken})
}

// Logout blacklists the caller's access token, removes the stored
// refresh token and clears the cookie.
func (h *Auth) Logout(c *gin.Context) {
	rawAccess := middleware.BearerToken(c)
	if rawAccess == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token missing"})
		return
	}

	rawRefresh, _ := c.Cookie(refreshCookieName)

	if err := h.authService.Logout(c.Request.Context(), rawAccess, rawRefresh); err != nil {
		handleError(c, err)
		return
	}

	h.clearRefreshCookie(c)

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// ForgotPassword starts the reset flow. The response does not reveal
// whether the email belongs to an account.
func (h *Auth) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If that email exists, a reset link has been sent"})
}

// ResetPassword completes the reset flow using the token from the URL.
func (h *Auth) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password and confirmation are required"})
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.ConfirmPassword)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// Me returns the authenticated user's profile summary.
func (h *Auth) Me(c *gin.Context) {
	claims, ok := h.contextManager.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization required"})
		return
	}

	summary, err := h.authService.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": summary})
}

// ListUsers returns all user summaries. The router gates it behind the
// admin role.
func (h *Auth) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Auth) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, int(h.refreshTTL.Seconds()), "/", "", h.secureCookies, true)
}

func (h *Auth) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", h.secureCookies, true)
}

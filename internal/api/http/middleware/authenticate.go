package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apicontext "github.com/skillupng/lms-server/internal/api/http/context"
	"github.com/skillupng/lms-server/internal/logger"
	"github.com/skillupng/lms-server/internal/model"
)

// TokenService verifies access tokens presented by clients.
type TokenService interface {
	VerifyAccess(ctx context.Context, rawToken string) (model.TokenClaims, error)
}

// Authenticate validates bearer tokens and injects claims into the
// request context.
type Authenticate struct {
	tokenService   TokenService
	contextManager *apicontext.Manager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager *apicontext.Manager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// Handle parses the Authorization header, verifies the token and stores
// the claims for downstream handlers. An expired token gets a distinct
// message so clients know to refresh.
func (m *Authenticate) Handle(c *gin.Context) {
	tokenString := BearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access token missing"})
		return
	}

	claims, err := m.tokenService.VerifyAccess(c.Request.Context(), tokenString)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token expired"})
		case errors.Is(err, model.ErrTokenInvalid):
			m.logger.Debug("Authenticate middleware: token rejected", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		default:
			// Not a verdict on the token: verification itself failed,
			// e.g. the revocation store is unreachable.
			m.logger.Error("Authenticate middleware: token verification failed", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	m.contextManager.SetClaims(c, claims)
	c.Next()
}

// RequireRoles rejects requests whose claims carry none of the allowed
// roles. It must run after Authenticate.
func (m *Authenticate) RequireRoles(allowed ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.contextManager.GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization required"})
			return
		}

		for _, role := range allowed {
			if model.HasRole(claims.Roles, role) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden: insufficient permissions"})
	}
}

// BearerToken extracts the token from the Authorization header, or
// returns an empty string when the header is absent or malformed.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}

	return token
}

// Package context stores authenticated token claims on a request.
package context

import (
	"github.com/gin-gonic/gin"

	"github.com/skillupng/lms-server/internal/model"
)

const claimsKey = "auth_claims"

// Manager sets and retrieves token claims on a gin request context.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetClaims stores the verified token claims on the request.
func (m *Manager) SetClaims(c *gin.Context, claims model.TokenClaims) {
	c.Set(claimsKey, claims)
}

// GetClaims retrieves the token claims stored by the authentication
// middleware. The boolean reports whether the request carries claims.
func (m *Manager) GetClaims(c *gin.Context) (model.TokenClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return model.TokenClaims{}, false
	}

	claims, ok := v.(model.TokenClaims)
	if !ok {
		return model.TokenClaims{}, false
	}

	return claims, true
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/you/identitysvc/domain"
)

// AuthMW wraps the identity service for the access middleware
type AuthMW struct {
	identity   domain.IdentityService
	production bool
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(identity domain.IdentityService, production bool) *AuthMW {
	return &AuthMW{
		identity:   identity,
		production: production,
	}
}

// WithSession returns middleware requiring an active, session-bound credential
func (mw *AuthMW) WithSession() gin.HandlerFunc {
	return AuthMiddleware(mw.identity, true, mw.production)
}

package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/http/handlers"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(identity domain.IdentityService, requireSession, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := handlers.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			handlers.RenderError(c, domain.ErrTokenMalformed.WithMessage("authorization header must be a bearer token"), production)
			return
		}

		principal, err := identity.VerifyToken(c.Request.Context(), token, requireSession)
		if err != nil {
			handlers.RenderError(c, err, production)
			return
		}

		c.Set(handlers.PrincipalKey, principal)
		c.Set("account_id", strconv.FormatUint(uint64(principal.Account.ID), 10))
		c.Set("session_id", principal.SessionID)

		c.Next()
	}
}

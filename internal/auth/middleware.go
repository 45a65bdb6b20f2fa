package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classtrack/internal/apperr"
	"classtrack/internal/model"
)

// RoleSource resolves an account id to its stored role. Implemented by the
// user repository; the lookup doubles as an existence check so tokens for
// deleted accounts stop working immediately.
type RoleSource interface {
	Role(ctx context.Context, id string) (model.Role, error)
}

// Authenticate enforces bearer JWT tokens signed with HS256 and attaches an
// Actor to the request context.
func Authenticate(signingKey, issuer string, roles RoleSource, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role, err := roles.Role(c.Request.Context(), claims.Subject)
		if err != nil {
			// a deleted account is an invalid token; anything else is a
			// storage failure the caller cannot act on
			if apperr.KindOf(err) == apperr.KindNotFound {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			log.Error("role lookup failed",
				zap.String("path", c.FullPath()),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		SetActor(c, Actor{ID: claims.Subject, Role: role})
		c.Next()
	}
}

// README: Firebase ID token authentication and role guards.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hatid/internal/infra"
	"hatid/internal/logging"
	"hatid/internal/types"
)

const (
	ctxKeyUID  = "caller_uid"
	ctxKeyRole = "caller_role"
)

// Auth verifies the Bearer token and stores the caller's uid and role.
// A token without a role claim is treated as a rider.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxKeyUID, token.UID)
		c.Set(ctxKeyRole, string(types.ParseRole(token.Role())))
		c.Request = c.Request.WithContext(logging.WithUserID(c.Request.Context(), token.UID))
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxKeyUID)
}

func CallerRole(c *gin.Context) types.Role {
	return types.Role(c.GetString(ctxKeyRole))
}

// Caller returns the authenticated actor.
func Caller(c *gin.Context) types.Actor {
	return types.Actor{ID: types.ID(CallerUID(c)), Role: CallerRole(c)}
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/statuspulse/statuspulse/internal/config"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The boolean is false when the header is absent or malformed.
func BearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}

	return parts[1], true
}

// RequireAlertKey gates a route behind the shared external-alert token. When
// no token is provisioned the route is open.
func RequireAlertKey(secrets config.SecretSource) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		expected, required := secrets.AlertToken()
		if !required {
			ctx.Next()
			return
		}

		token, ok := BearerToken(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		ctx.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gymdesk/backend/internal/security"
)

const bearerPrefix = "bearer "

// Auth validates the Bearer access token and stores the owner ID in the
// request context for protected routes. publicPaths is the set of route paths
// (method + space + full path) that do not require a token.
func Auth(tokens *security.TokenProvider, publicPaths map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		public := publicPaths[c.Request.Method+" "+c.FullPath()]
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			if public {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		ownerID, err := tokens.ValidateAccess(token)
		if err != nil {
			if public {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		c.Request = c.Request.WithContext(WithOwnerID(c.Request.Context(), ownerID))
		c.Next()
	}
}

// extractBearer returns the Bearer token from an Authorization header value,
// or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

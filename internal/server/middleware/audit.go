package middleware

import (
	"github.com/gin-gonic/gin"

	"gymdesk/backend/internal/audit"
)

// Audit records an audit log entry after each request on the routes it is
// mounted on. Only authenticated requests are written; the auth routes audit
// themselves through their handlers. skipRoutes is keyed by method + space +
// route pattern.
func Audit(logger audit.AuditLogger, skipRoutes map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if skipRoutes[c.Request.Method+" "+c.FullPath()] {
			return
		}
		ownerID, ok := GetOwnerID(c.Request.Context())
		if !ok {
			return
		}
		ar := audit.ParseRoute(c.Request.Method, c.FullPath())
		logger.LogEvent(c.Request.Context(), ownerID, ownerID, ar.Action, ar.Resource, "")
	}
}

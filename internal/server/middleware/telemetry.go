package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"gymdesk/backend/internal/telemetry"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for
// http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Route      string `json:"route"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry emits an http_request event after each request. Best-effort; if
// emitter is nil the middleware no-ops. skipRoutes is keyed by method +
// space + route pattern.
func Telemetry(emitter telemetry.EventEmitter, skipRoutes map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if emitter == nil || skipRoutes[c.Request.Method+" "+c.FullPath()] {
			return
		}
		meta, _ := json.Marshal(httpRequestMetadata{
			Method:     c.Request.Method,
			Route:      c.FullPath(),
			Status:     c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   c.ClientIP(),
		})
		ownerID, _ := GetOwnerID(c.Request.Context())
		telemetry.EmitAsync(emitter, &telemetry.Event{
			OwnerID:   ownerID,
			EventType: "http_request",
			Source:    "http_middleware",
			Metadata:  meta,
			CreatedAt: time.Now().UTC(),
		})
	}
}

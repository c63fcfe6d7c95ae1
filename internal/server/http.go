// Package server assembles the HTTP API: middleware chain, route groups, and
// handler registration.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymdesk/backend/internal/audit"
	"gymdesk/backend/internal/devotp"
	"gymdesk/backend/internal/health"
	memberhandler "gymdesk/backend/internal/member/handler"
	membershiphandler "gymdesk/backend/internal/membership/handler"
	ownerhandler "gymdesk/backend/internal/owner/handler"
	"gymdesk/backend/internal/security"
	"gymdesk/backend/internal/server/middleware"
	"gymdesk/backend/internal/telemetry"
)

const basePath = "/api/v1"

// Deps holds the handlers and cross-cutting dependencies the router mounts.
type Deps struct {
	Log    *zap.Logger
	Tokens *security.TokenProvider

	Owner      *ownerhandler.Handler
	Member     *memberhandler.Handler
	Membership *membershiphandler.Handler
	Health     *health.Handler
	// DevOTP is the dev-only OTP inspection handler. If nil, the route is not
	// registered. Set only when dev OTP mode is enabled and not production.
	DevOTP *devotp.Handler

	// RateLimiter bounds hits on the auth routes. If nil, no rate limiting.
	RateLimiter    middleware.Limiter
	RateLimitMax   int64
	RateLimitEvery time.Duration

	// Audit records mutating requests. If nil, no audit trail is written.
	Audit audit.AuditLogger
	// Telemetry emits an event per request. If nil, telemetry is off.
	Telemetry telemetry.EventEmitter
}

// New builds the gin engine with the full middleware chain and all routes.
func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.RequestLog(deps.Log))

	publicPaths := map[string]bool{
		"POST " + basePath + "/auth/register": true,
		"POST " + basePath + "/auth/login":    true,
		"GET " + basePath + "/healthz":        true,
	}
	if deps.DevOTP != nil {
		publicPaths["GET "+basePath+"/dev/otp"] = true
	}
	r.Use(middleware.Auth(deps.Tokens, publicPaths))

	skipRoutes := map[string]bool{
		"GET " + basePath + "/healthz": true,
	}
	if deps.Audit != nil {
		r.Use(middleware.Audit(deps.Audit, skipRoutes))
	}
	if deps.Telemetry != nil {
		r.Use(middleware.Telemetry(deps.Telemetry, skipRoutes))
	}

	api := r.Group(basePath)

	// Rate-limited routes get their own groups so the limit does not apply to
	// health checks or the rest of the authenticated traffic. The login routes
	// and the phone OTP routes share the same window.
	authGroup := r.Group(basePath)
	otpGroup := api.Group("")
	if deps.RateLimiter != nil {
		limit := middleware.RateLimit(deps.RateLimiter, deps.RateLimitMax, deps.RateLimitEvery, deps.Log)
		authGroup.Use(limit)
		otpGroup.Use(limit)
	}

	deps.Owner.Register(authGroup, api, otpGroup)
	deps.Member.Register(api)
	deps.Membership.Register(api)
	deps.Health.Register(api)
	if deps.DevOTP != nil {
		deps.DevOTP.Register(api)
	}

	return r
}

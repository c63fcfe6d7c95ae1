package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymdesk/backend/internal/devotp"
	"gymdesk/backend/internal/health"
	memberhandler "gymdesk/backend/internal/member/handler"
	memberservice "gymdesk/backend/internal/member/service"
	membershiphandler "gymdesk/backend/internal/membership/handler"
	membershipservice "gymdesk/backend/internal/membership/service"
	"gymdesk/backend/internal/otp"
	ownerhandler "gymdesk/backend/internal/owner/handler"
	ownerservice "gymdesk/backend/internal/owner/service"
	"gymdesk/backend/internal/security"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	log := zap.NewNop()
	return Deps{
		Log:        log,
		Tokens:     tokens,
		Owner:      ownerhandler.New(&ownerservice.AuthService{}, &ownerservice.ProfileService{}, log),
		Member:     memberhandler.New(&memberservice.Service{}, log),
		Membership: membershiphandler.New(&membershipservice.Service{}, log),
		Health:     health.NewHandler(nil, nil, nil),
	}
}

func routeSet(r *gin.Engine) map[string]bool {
	set := make(map[string]bool)
	for _, route := range r.Routes() {
		set[route.Method+" "+route.Path] = true
	}
	return set
}

func TestNewMountsAllRoutes(t *testing.T) {
	r := New(testDeps(t))
	routes := routeSet(r)

	want := []string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"GET /api/v1/me",
		"PUT /api/v1/me",
		"PUT /api/v1/me/password",
		"POST /api/v1/me/phone",
		"POST /api/v1/me/phone/verify",
		"POST /api/v1/members",
		"GET /api/v1/members",
		"GET /api/v1/members/:id",
		"PUT /api/v1/members/:id",
		"DELETE /api/v1/members/:id",
		"POST /api/v1/members/:id/memberships",
		"GET /api/v1/members/:id/memberships",
		"GET /api/v1/revenue",
		"GET /api/v1/healthz",
	}
	for _, route := range want {
		if !routes[route] {
			t.Errorf("route %q not mounted", route)
		}
	}
}

type recordingLimiter struct {
	count int64
	keys  []string
}

func (l *recordingLimiter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	l.keys = append(l.keys, key)
	return l.count, nil
}

func TestNewRateLimitsAuthAndPhoneRoutes(t *testing.T) {
	deps := testDeps(t)
	limiter := &recordingLimiter{count: 1000}
	deps.RateLimiter = limiter
	deps.RateLimitMax = 5
	deps.RateLimitEvery = 10 * time.Minute
	r := New(deps)

	token, _, _, err := deps.Tokens.IssueAccess("owner-1", "Iron Temple")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	limited := []struct{ method, path, token string }{
		{http.MethodPost, "/api/v1/auth/register", ""},
		{http.MethodPost, "/api/v1/auth/login", ""},
		{http.MethodPost, "/api/v1/me/phone", token},
		{http.MethodPost, "/api/v1/me/phone/verify", token},
	}
	for _, tc := range limited {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusTooManyRequests {
			t.Errorf("%s %s over limit: status = %d, want 429", tc.method, tc.path, w.Code)
		}
	}

	// The rest of the authenticated surface never consults the limiter.
	limiter.keys = nil
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)
	if len(limiter.keys) != 0 {
		t.Fatalf("GET /me consulted the limiter: keys = %v", limiter.keys)
	}
}

func TestNewDevRouteOnlyWhenEnabled(t *testing.T) {
	deps := testDeps(t)
	if routeSet(New(deps))["GET /api/v1/dev/otp"] {
		t.Fatal("dev route mounted without a dev handler")
	}

	deps.DevOTP = devotp.NewHandler(otp.NewVerifier(otp.NewMemoryStore(), 10*time.Minute))
	if !routeSet(New(deps))["GET /api/v1/dev/otp"] {
		t.Fatal("dev route not mounted with a dev handler")
	}
}

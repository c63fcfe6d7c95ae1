package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

type recordedEvent struct {
	OwnerID  string
	ActorID  string
	Action   string
	Resource string
}

type fakeAuditLogger struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeAuditLogger) LogEvent(ctx context.Context, ownerID, actorID, action, resource, metadata string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{OwnerID: ownerID, ActorID: actorID, Action: action, Resource: resource})
}

func (f *fakeAuditLogger) all() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEvent(nil), f.events...)
}

func newAuditRouter(t *testing.T, logger *fakeAuditLogger, ownerID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if ownerID != "" {
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(WithOwnerID(c.Request.Context(), ownerID))
			c.Next()
		})
	}
	r.Use(Audit(logger, map[string]bool{"GET /healthz": true}))
	r.POST("/members", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAuditRecordsAuthenticatedRequest(t *testing.T) {
	logger := &fakeAuditLogger{}
	r := newAuditRouter(t, logger, "owner-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/members", nil))

	events := logger.all()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.OwnerID != "owner-1" || e.ActorID != "owner-1" {
		t.Fatalf("owner/actor = %q/%q", e.OwnerID, e.ActorID)
	}
	if e.Action != "create" || e.Resource != "member" {
		t.Fatalf("action/resource = %q/%q", e.Action, e.Resource)
	}
}

func TestAuditSkipsUnauthenticatedRequest(t *testing.T) {
	logger := &fakeAuditLogger{}
	r := newAuditRouter(t, logger, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/members", nil))

	if got := len(logger.all()); got != 0 {
		t.Fatalf("events = %d, want 0", got)
	}
}

func TestAuditSkipsListedRoutes(t *testing.T) {
	logger := &fakeAuditLogger{}
	r := newAuditRouter(t, logger, "owner-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := len(logger.all()); got != 0 {
		t.Fatalf("events = %d, want 0", got)
	}
}

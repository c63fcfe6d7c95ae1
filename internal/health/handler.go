// Package health serves the readiness endpoint used by load balancers and
// container orchestrators.
package health

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"gymdesk/backend/internal/messaging"
)

// Pinger reports database connectivity. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports whether the policy engine can compile and evaluate.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// SessionStater reports the messaging session state.
type SessionStater interface {
	State() messaging.State
}

// Handler answers GET /healthz. The database is the only hard dependency;
// a degraded policy engine or messaging session is reported but does not
// flip the status code, since the API can still serve requests without them.
type Handler struct {
	db      Pinger
	policy  PolicyChecker
	session SessionStater
}

func NewHandler(db Pinger, policy PolicyChecker, session SessionStater) *Handler {
	return &Handler{db: db, policy: policy, session: session}
}

// Register mounts the health route on the given group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/healthz", h.healthz)
}

func (h *Handler) healthz(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	body := gin.H{"status": "ok"}

	if err := h.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
		body["database"] = err.Error()
	} else {
		body["database"] = "ok"
	}

	if h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			body["policy_engine"] = err.Error()
		} else {
			body["policy_engine"] = "ok"
		}
	}

	if h.session != nil {
		body["messaging_session"] = h.session.State().String()
	}

	c.JSON(status, body)
}

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymdesk/backend/internal/membership/domain"
	"gymdesk/backend/internal/membership/service"
	"gymdesk/backend/internal/server/middleware"
)

type Handler struct {
	memberships *service.Service
	log         *zap.Logger
}

func New(memberships *service.Service, log *zap.Logger) *Handler {
	return &Handler{memberships: memberships, log: log.Named("membership_handler")}
}

func (h *Handler) Register(private *gin.RouterGroup) {
	private.POST("/members/:id/memberships", h.record)
	private.GET("/members/:id/memberships", h.history)
	private.GET("/revenue", h.revenue)
}

type recordRequest struct {
	PlanMonths int    `json:"plan_months" binding:"required"`
	Amount     int64  `json:"amount"`
	Method     string `json:"method"`
	StartsAt   string `json:"starts_at"`
}

func (h *Handler) record(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	var startsAt time.Time
	if req.StartsAt != "" {
		var err error
		startsAt, err = time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "starts_at must be RFC 3339"})
			return
		}
	}
	tx, err := h.memberships.Record(c.Request.Context(), ownerID, service.RecordInput{
		MemberID:   c.Param("id"),
		PlanMonths: req.PlanMonths,
		Amount:     req.Amount,
		Method:     req.Method,
		StartsAt:   startsAt,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, transactionView(tx))
}

func (h *Handler) history(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	txs, err := h.memberships.History(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]gin.H, 0, len(txs))
	for _, tx := range txs {
		views = append(views, transactionView(tx))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": views})
}

func (h *Handler) revenue(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	var from, to time.Time
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
	}
	report, err := h.memberships.Revenue(c.Request.Context(), ownerID, from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":              report.From.Format(time.RFC3339),
		"to":                report.To.Format(time.RFC3339),
		"total":             report.Total,
		"transaction_count": report.Count,
	})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("membership request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func transactionView(t *domain.Transaction) gin.H {
	return gin.H{
		"id":          t.ID,
		"member_id":   t.MemberID,
		"plan_months": t.PlanMonths,
		"amount":      t.Amount,
		"method":      t.Method,
		"starts_at":   t.StartsAt.Format(time.RFC3339),
		"expires_at":  t.ExpiresAt.Format(time.RFC3339),
		"created_at":  t.CreatedAt.Format(time.RFC3339),
	}
}

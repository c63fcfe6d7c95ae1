package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymdesk/backend/internal/member/domain"
	"gymdesk/backend/internal/member/service"
	"gymdesk/backend/internal/server/middleware"
)

type Handler struct {
	members *service.Service
	log     *zap.Logger
}

func New(members *service.Service, log *zap.Logger) *Handler {
	return &Handler{members: members, log: log.Named("member_handler")}
}

func (h *Handler) Register(private *gin.RouterGroup) {
	private.POST("/members", h.create)
	private.GET("/members", h.list)
	private.GET("/members/:id", h.get)
	private.PUT("/members/:id", h.update)
	private.DELETE("/members/:id", h.remove)
}

type createRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email"`
	Notes    string `json:"notes"`
	JoinedAt string `json:"joined_at"`
}

func (h *Handler) create(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	var joined time.Time
	if req.JoinedAt != "" {
		var err error
		joined, err = time.Parse(time.RFC3339, req.JoinedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "joined_at must be RFC 3339"})
			return
		}
	}
	member, err := h.members.Create(c.Request.Context(), ownerID, service.CreateInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Notes:    req.Notes,
		JoinedAt: joined,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, memberView(member))
}

func (h *Handler) list(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	members, err := h.members.List(c.Request.Context(), ownerID, c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]gin.H, 0, len(members))
	for _, m := range members {
		views = append(views, memberView(m))
	}
	c.JSON(http.StatusOK, gin.H{"members": views})
}

func (h *Handler) get(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	member, err := h.members.Get(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, memberView(member))
}

type updateRequest struct {
	Name   string `json:"name" binding:"required"`
	Phone  string `json:"phone" binding:"required"`
	Email  string `json:"email"`
	Notes  string `json:"notes"`
	Status string `json:"status"`
}

func (h *Handler) update(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	member, err := h.members.Update(c.Request.Context(), ownerID, c.Param("id"), service.UpdateInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Notes:  req.Notes,
		Status: req.Status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, memberView(member))
}

func (h *Handler) remove(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	if err := h.members.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, service.ErrPhoneTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("member request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func memberView(m *domain.Member) gin.H {
	return gin.H{
		"id":         m.ID,
		"name":       m.Name,
		"phone":      m.Phone,
		"email":      m.Email,
		"notes":      m.Notes,
		"status":     string(m.Status),
		"joined_at":  m.JoinedAt.Format(time.RFC3339),
		"created_at": m.CreatedAt.Format(time.RFC3339),
	}
}

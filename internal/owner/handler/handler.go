// Package handler exposes owner account operations over HTTP: registration,
// login, profile reads and updates, password changes, and the two-step phone
// verification.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymdesk/backend/internal/otp"
	"gymdesk/backend/internal/owner/domain"
	"gymdesk/backend/internal/owner/service"
	"gymdesk/backend/internal/server/middleware"
)

type Handler struct {
	auth    *service.AuthService
	profile *service.ProfileService
	log     *zap.Logger
}

func New(auth *service.AuthService, profile *service.ProfileService, log *zap.Logger) *Handler {
	return &Handler{auth: auth, profile: profile, log: log.Named("owner_handler")}
}

// Register mounts the owner routes on the given groups. public carries the
// unauthenticated auth routes; private everything behind the bearer token;
// limited the phone OTP routes, which sit behind the bearer token and the
// rate limit.
func (h *Handler) Register(public, private, limited *gin.RouterGroup) {
	public.POST("/auth/register", h.register)
	public.POST("/auth/login", h.login)
	private.GET("/me", h.me)
	private.PUT("/me", h.updateProfile)
	private.PUT("/me/password", h.changePassword)
	limited.POST("/me/phone", h.requestPhoneChange)
	limited.POST("/me/phone/verify", h.confirmPhoneChange)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	GymName  string `json:"gym_name" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	res, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.GymName)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyRegistered) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"owner_id": res.OwnerID})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": res.AccessToken,
		"expires_at":   res.ExpiresAt.Format(time.RFC3339),
		"owner_id":     res.OwnerID,
		"gym_name":     res.GymName,
	})
}

func (h *Handler) me(c *gin.Context) {
	ownerID, ok := middleware.GetOwnerID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
		return
	}
	owner, err := h.profile.Get(c.Request.Context(), ownerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ownerView(owner))
}

type updateProfileRequest struct {
	GymName          string `json:"gym_name" binding:"required"`
	RemindDaysBefore int    `json:"remind_days_before"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	owner, err := h.profile.UpdateProfile(c.Request.Context(), ownerID, req.GymName, req.RemindDaysBefore)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ownerView(owner))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (h *Handler) changePassword(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if err := h.profile.ChangePassword(c.Request.Context(), ownerID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

type phoneChangeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

func (h *Handler) requestPhoneChange(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	var req phoneChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if err := h.profile.RequestPhoneChange(c.Request.Context(), ownerID, req.Phone); err != nil {
		if errors.Is(err, service.ErrPhoneInUse) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "verification code sent"})
}

type phoneVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) confirmPhoneChange(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c.Request.Context())
	var req phoneVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	owner, err := h.profile.ConfirmPhoneChange(c.Request.Context(), ownerID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPhoneInUse):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.fail(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, ownerView(owner))
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOwnerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "owner not found"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, otp.ErrNoPendingRequest), errors.Is(err, otp.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("owner request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func ownerView(o *domain.Owner) gin.H {
	return gin.H{
		"id":                 o.ID,
		"email":              o.Email,
		"gym_name":           o.GymName,
		"phone":              o.Phone,
		"phone_verified":     o.PhoneVerified,
		"remind_days_before": o.RemindDaysBefore,
		"status":             string(o.Status),
		"created_at":         o.CreatedAt.Format(time.RFC3339),
	}
}

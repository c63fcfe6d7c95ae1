// Package devotp exposes pending verification codes over HTTP for local
// development (GET /dev/otp). Never mounted in production.
package devotp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gymdesk/backend/internal/otp"
)

const devOTPNote = "DEV MODE ONLY"

// Handler serves the dev-only OTP inspection endpoint. Only registered when
// dev OTP mode is enabled and the environment is not production.
type Handler struct {
	verifier *otp.Verifier
}

// NewHandler returns a Handler that reads pending codes from the given verifier.
func NewHandler(verifier *otp.Verifier) *Handler {
	return &Handler{verifier: verifier}
}

// Register mounts the dev routes on the given group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/dev/otp", h.getOTP)
}

func (h *Handler) getOTP(c *gin.Context) {
	purpose := c.Query("purpose")
	requesterID := c.Query("requester_id")
	if purpose == "" || requesterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "purpose and requester_id are required"})
		return
	}
	req, err := h.verifier.Peek(c.Request.Context(), purpose, requesterID)
	if err != nil {
		if errors.Is(err, otp.ErrNoPendingRequest) {
			c.JSON(http.StatusNotFound, gin.H{"error": "OTP not found or expired"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       req.Code,
		"expires_at": req.ExpiresAt,
		"note":       devOTPNote,
	})
}

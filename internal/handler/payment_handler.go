package handler

import (
	"io"
	"net/http"

	"github.com/civicpulse/service-emergency/internal/application"
	"github.com/civicpulse/service-emergency/internal/platform/auth"
	"github.com/civicpulse/service-emergency/internal/platform/middleware"
	"github.com/civicpulse/service-emergency/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment status polling and provider webhooks.
type PaymentHandler struct {
	service *application.BookingService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *application.BookingService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers payment routes. The webhook endpoint is
// authenticated by signature verification, not JWT, since the caller is the
// payment provider.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	payments := r.Group("/api/v1/payments")
	{
		payments.GET("/:sessionId/status", middleware.AuthMiddleware(jwtManager), h.PollStatus)
		payments.POST("/webhook", h.Webhook)
	}
}

// PollStatus handles GET /api/v1/payments/:sessionId/status. It queries the
// provider and applies any settled outcome before responding.
func (h *PaymentHandler) PollStatus(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		response.BadRequest(c, "missing session ID")
		return
	}

	status, err := h.service.PollPaymentStatus(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"session_id": sessionID, "status": status})
}

// Webhook handles POST /api/v1/payments/webhook. A 2xx is returned only after
// the outcome is durably applied, so the provider redelivers on our failures.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "failed to read webhook payload")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.service.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace/internal/logging"
	"marketplace/internal/services"
)

// PaymentWebhookHandler receives payment-gateway callbacks. The gateway
// authenticates with a shared secret header, not a user token.
type PaymentWebhookHandler struct {
	status services.StatusService
	secret string
}

func NewPaymentWebhookHandler(status services.StatusService, secret string) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{status: status, secret: secret}
}

func (h *PaymentWebhookHandler) HandlePaymentEvent(c *gin.Context) {
	if h.secret == "" || c.GetHeader("X-Webhook-Secret") != h.secret {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "invalid webhook secret"})
		return
	}

	var req struct {
		OrderID   string `json:"order_id"`
		Event     string `json:"event"`
		Reference string `json:"reference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid request format"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "order_id must be a valid uuid"})
		return
	}

	// Gateways post every event type to the same URL; only a successful
	// payment moves the order.
	if req.Event != "" && req.Event != "payment.success" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "event": req.Event})
		return
	}

	order, err := h.status.MarkPaid(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	logging.LogKV("info", "payment confirmed", map[string]interface{}{
		"order_number": order.OrderNumber,
		"reference":    req.Reference,
	})
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"order_number": order.OrderNumber,
		"order_status": order.Status,
	})
}

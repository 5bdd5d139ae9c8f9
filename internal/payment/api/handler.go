package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"festival-ticketing/internal/gateway"
	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/models"
	"festival-ticketing/internal/orders/db"
	"festival-ticketing/internal/recon"
	"festival-ticketing/internal/sse"
	"festival-ticketing/internal/status"
	"festival-ticketing/internal/utils"

	"github.com/gin-gonic/gin"
)

type ReconEngine interface {
	Reconcile(ctx context.Context, orderNumber string, src recon.StatusSource) (recon.Result, error)
}

type OrderReader interface {
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
}

// Handler is the public payment surface: the gateway webhook receiver and
// the buyer's pending-payment polling/streaming endpoints. No admin auth;
// the webhook is protected by the gateway signature.
type Handler struct {
	Engine   ReconEngine
	Orders   OrderReader
	Verifier gateway.SignatureVerifier
	Emitter  *sse.StatusEventEmitter
	Logger   *logger.Logger
}

// Notification handles POST /payment/notification. Idempotent: duplicated
// and out-of-order deliveries reconcile to a no-op. Expected outcomes
// always answer 200 so the gateway stops retrying.
func (h *Handler) Notification(c *gin.Context) {
	var notification models.GatewayNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid notification payload", err.Error()))
		return
	}

	if !h.Verifier.Verify(notification) {
		h.Logger.Warn("WEBHOOK", "signature verification failed for "+notification.OrderID)
		c.JSON(http.StatusForbidden, utils.ErrorResponse("Invalid signature", ""))
		return
	}

	src := gateway.NotificationSource{Notification: notification}
	result, err := h.Engine.Reconcile(c.Request.Context(), notification.OrderID, src)
	if err != nil {
		// Storage fault: let the gateway redeliver.
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Reconciliation failed", err.Error()))
		return
	}

	if result.Outcome == recon.OutcomeNotFound {
		// The order was already cleaned up; acknowledge so the gateway
		// stops retrying a reference that will never exist again.
		c.JSON(http.StatusOK, utils.SuccessResponse("Order no longer exists", gin.H{"gone": true}))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Notification processed", result))
}

// Status handles GET /payment/:orderNumber/status, the buyer's polling
// endpoint. Exposes status plus derived booleans only. On internal errors
// it degrades to "still checking" rather than showing a false failure.
func (h *Handler) Status(c *gin.Context) {
	orderNumber := c.Param("orderNumber")

	order, err := h.Orders.GetByNumber(c.Request.Context(), orderNumber)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found", orderNumber))
		return
	}
	if err != nil {
		h.Logger.Error("PAYMENT", fmt.Sprintf("status read for %s failed: %v", orderNumber, err))
		c.JSON(http.StatusOK, utils.SuccessResponse("Still checking", models.PaymentStatusResponse{
			OrderNumber: orderNumber,
			Status:      string(status.Pending),
			IsPending:   true,
		}))
		return
	}

	s := status.Status(order.Status)
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment status", models.PaymentStatusResponse{
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		IsSuccessful: status.IsPaid(s),
		IsFailed:     status.IsTerminalFailure(s),
		IsPending:    !status.IsPaid(s) && !status.IsTerminalFailure(s) && !status.IsPostPaidAdjustment(s),
	}))
}

// StatusStream handles GET /payment/:orderNumber/events, an SSE stream
// of reconciled status changes for the pending-payment page.
func (h *Handler) StatusStream(c *gin.Context) {
	orderNumber := c.Param("orderNumber")

	if _, err := h.Orders.GetByNumber(c.Request.Context(), orderNumber); errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found", orderNumber))
		return
	}

	events := h.Emitter.Subscribe(c.Request.Context(), orderNumber)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		result, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent("status", gin.H{
			"order_number":  result.OrderNumber,
			"status":        result.NewStatus,
			"is_successful": status.IsPaid(result.NewStatus),
			"is_failed":     status.IsTerminalFailure(result.NewStatus),
		})
		// A final status ends the stream.
		return !status.IsTerminalFailure(result.NewStatus) && !status.IsPaid(result.NewStatus)
	})
}

// Router wires the public payment routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/payment/notification", h.Notification)
	r.GET("/payment/:orderNumber/status", h.Status)
	r.GET("/payment/:orderNumber/events", h.StatusStream)

	return r
}

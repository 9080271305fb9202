package api

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"orderId":     resp.OrderID,
		"approvalURL": resp.ApprovalURL,
		"isDemo":      resp.IsDemo,
	})
}

func (h *Handler) captureOrder(c *gin.Context) {
	var req service.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	order, err := h.orders.Capture(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order confirmed",
		"data":    order,
	})
}

func (h *Handler) listUserOrders(c *gin.Context) {
	orders, err := h.orders.GetOrdersByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	ok(c, http.StatusOK, orders)
}

func (h *Handler) orderDetails(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

func (h *Handler) paymentDetails(c *gin.Context) {
	details, err := h.orders.PaymentDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, details)
}

func (h *Handler) listAllOrders(c *gin.Context) {
	orders, err := h.orders.GetAllOrders(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	ok(c, http.StatusOK, orders)
}

type orderStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.OrderStatus)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order status is updated successfully!",
		"data":    order,
	})
}


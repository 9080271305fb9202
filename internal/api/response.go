package api

import (
	"errors"
	"net/http"

	"storefront/internal/guestcart"
	"storefront/internal/payment"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func (h *Handler) badBody(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request body",
		"details": err.Error(),
	})
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and hidden behind a generic message.
func (h *Handler) writeError(c *gin.Context, err error) {
	var checkoutErr *service.CheckoutError
	if errors.As(err, &checkoutErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":        false,
			"message":        checkoutErr.Message,
			"errors":         checkoutErr.Errors,
			"validatedItems": checkoutErr.ValidatedItems,
		})
		return
	}

	var payErr *payment.Error
	if errors.As(err, &payErr) {
		h.logger.Warn("Payment provider error",
			zap.String("path", c.FullPath()),
			zap.String("provider", payErr.Provider),
			zap.String("debug_id", payErr.DebugID),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": payErr.Message,
			"error":   payErr,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, guestcart.ErrInvalidQuantity),
		errors.Is(err, guestcart.ErrTooManyItems),
		errors.Is(err, guestcart.ErrQuantityLimit):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCartConflict),
		errors.Is(err, service.ErrCaptureInProgress),
		errors.Is(err, service.ErrOrderNotPending):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, "Unauthorised user!")
	case errors.Is(err, service.ErrForbidden):
		fail(c, http.StatusForbidden, "Access denied")
	default:
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		fail(c, http.StatusInternalServerError, "Some error occured")
	}
}

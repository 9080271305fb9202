package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/guestcart"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// GuestCartFactory returns the guest cart bound to guestID
type GuestCartFactory func(guestID string) *guestcart.Store

// Deps wires a Handler
type Deps struct {
	Carts          *service.CartService
	Merger         *service.CartMerger
	Orders         *service.OrderService
	Catalog        *service.CatalogService
	Addresses      *service.AddressService
	Features       *service.FeatureService
	Auth           *service.AuthService
	GuestCarts     GuestCartFactory
	Ready          Pinger
	AllowedOrigins []string
	TokenTTL       time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	carts          *service.CartService
	merger         *service.CartMerger
	orders         *service.OrderService
	catalog        *service.CatalogService
	addresses      *service.AddressService
	features       *service.FeatureService
	auth           *service.AuthService
	guestCarts     GuestCartFactory
	ready          Pinger
	allowedOrigins []string
	tokenTTL       time.Duration
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		carts:          deps.Carts,
		merger:         deps.Merger,
		orders:         deps.Orders,
		catalog:        deps.Catalog,
		addresses:      deps.Addresses,
		features:       deps.Features,
		auth:           deps.Auth,
		guestCarts:     deps.GuestCarts,
		ready:          deps.Ready,
		allowedOrigins: deps.AllowedOrigins,
		tokenTTL:       deps.TokenTTL,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(h.corsMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/api/health", h.healthCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/logout", h.logout)
		auth.GET("/check-auth", h.authenticate(), h.checkAuth)
	}

	admin := router.Group("/api/admin", h.authenticate(), requireAdmin())
	{
		admin.POST("/products/addProduct", h.addProduct)
		admin.GET("/products/getAllProducts", h.listAllProducts)
		admin.PUT("/products/editProduct/:id", h.editProduct)
		admin.DELETE("/products/deleteProduct/:id", h.deleteProduct)

		admin.GET("/orders/get", h.listAllOrders)
		admin.GET("/orders/details/:id", h.orderDetails)
		admin.PUT("/orders/update/:id", h.updateOrderStatus)
	}

	shop := router.Group("/api/shop")
	{
		shop.GET("/products/get", h.listProducts)
		shop.GET("/products/get/:id", h.getProduct)
		shop.GET("/search/:keyword", h.searchProducts)

		shop.POST("/cart/add", h.addToCart)
		shop.GET("/cart/get/:userId", h.getCart)
		shop.PUT("/cart/update-cart", h.updateCartItem)
		shop.POST("/cart/merge", h.mergeGuestCart)
		shop.DELETE("/cart/:userId/:productId", h.removeCartItem)

		shop.GET("/guest-cart/:guestId", h.getGuestCart)
		shop.POST("/guest-cart/:guestId/add", h.addGuestCartItem)
		shop.PUT("/guest-cart/:guestId/update", h.updateGuestCartItem)
		shop.DELETE("/guest-cart/:guestId/:productId", h.removeGuestCartItem)
		shop.DELETE("/guest-cart/:guestId", h.clearGuestCart)

		shop.POST("/order/create", h.createOrder)
		shop.POST("/order/capture", h.captureOrder)
		shop.GET("/order/list/:userId", h.listUserOrders)
		shop.GET("/order/details/:id", h.orderDetails)
		shop.GET("/order/payment/:id", h.paymentDetails)

		shop.POST("/address/add", h.addAddress)
		shop.GET("/address/get/:userId", h.listAddresses)
		shop.PUT("/address/update/:userId/:addressId", h.updateAddress)
		shop.DELETE("/address/delete/:userId/:addressId", h.deleteAddress)
	}

	common := router.Group("/api/common/feature")
	{
		common.GET("/get", h.listFeatures)
		common.POST("/add", h.authenticate(), requireAdmin(), h.addFeature)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the document store answers a ping
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.ready.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Cache-Control", "Expires", "Pragma", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(h.allowedOrigins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = h.allowedOrigins
	}
	return cors.New(cfg)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

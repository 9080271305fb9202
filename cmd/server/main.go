package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/checkout"
	"storefront/internal/guestcart"
	"storefront/internal/ledger"
	"storefront/internal/payment"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// documentStore is satisfied by the Mongo store and the in-memory store
type documentStore interface {
	service.ProductStore
	service.CartStore
	service.OrderStore
	service.AddressStore
	service.UserStore
	service.FeatureStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, "storefront"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront",
		zap.String("store_driver", cfg.Server.StoreDriver),
		zap.String("payment_mode", cfg.Payment.Mode))

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	ctx := context.Background()
	local := cfg.Server.StoreDriver == config.StoreDriverMemory

	var db documentStore
	if local {
		db = memstore.New()
		logger.Warn("Using in-memory store; data is lost on restart")
	} else {
		mongoStore, err := store.NewStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		db = mongoStore
		logger.Info("MongoDB connected", zap.String("database", cfg.Mongo.Database))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db.Close(ctx)
	}()

	payments, err := payment.NewFacade(cfg.Payment)
	if err != nil {
		logger.Fatal("Failed to initialize payments", zap.Error(err))
	}

	orderDeps := service.OrderServiceDeps{
		Orders:         db,
		Carts:          db,
		Products:       db,
		Validator:      checkout.NewValidator(db, cfg.Business.MaxCartItems, cfg.Business.MaxCartQuantity),
		Payments:       payments,
		CaptureLockTTL: cfg.Business.CaptureLockTTL,
	}

	var guestBackend guestcart.Backend = guestcart.NewMemoryBackend()
	guestKey := func(guestID string) string { return fmt.Sprintf("guest_cart:%s", guestID) }

	var (
		stockWorker *worker.StockAlertWorker
		workerCtx   context.Context
		stopWorker  context.CancelFunc = func() {}
	)

	if !local {
		payLedger, err := ledger.New(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to payment ledger", zap.Error(err))
		}
		defer payLedger.Close()
		if err := payLedger.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate payment ledger", zap.Error(err))
		}
		orderDeps.Ledger = payLedger
		logger.Info("Payment ledger connected")

		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		orderDeps.Locker = redisClient
		redisGuests := redisClient.NewGuestCartBackend(cfg.Business.GuestCartTTL)
		guestBackend, guestKey = redisGuests, redisGuests.Key
		logger.Info("Redis connected")

		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		orderDeps.Events = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicOrder))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		stockWorker = worker.NewStockAlertWorker(consumer, db, payLedger, cfg.Business.LowStockThreshold)
		workerCtx, stopWorker = context.WithCancel(context.Background())
		go func() {
			if err := stockWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Stock alert worker stopped", zap.Error(err))
			}
		}()
	}
	defer stopWorker()

	carts := service.NewCartService(db, db)
	auth := service.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if err := auth.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Error("Failed to seed admin account", zap.Error(err))
		}
	}

	guestCarts := guestcart.NewRegistry(guestBackend, guestcart.WithLimits(guestcart.Limits{Expiry: cfg.Business.GuestCartTTL}))
	handler := api.NewHandler(api.Deps{
		Carts:     carts,
		Merger:    service.NewCartMerger(carts),
		Orders:    service.NewOrderService(orderDeps),
		Catalog:   service.NewCatalogService(db),
		Addresses: service.NewAddressService(db),
		Features:  service.NewFeatureService(db),
		Auth:      auth,
		GuestCarts: func(guestID string) *guestcart.Store {
			return guestCarts.For(guestKey(guestID))
		},
		Ready:          db,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TokenTTL:       cfg.Auth.TokenTTL,
	})

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if stockWorker != nil {
		stopWorker()
		if err := stockWorker.Stop(); err != nil {
			logger.Warn("Error stopping stock alert worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"herbalstore-backend/config"
	"herbalstore-backend/internal/delivery/http/middleware"
	v1 "herbalstore-backend/internal/delivery/http/v1"
	"herbalstore-backend/internal/infrastructure/cache"
	"herbalstore-backend/internal/infrastructure/events"
	"herbalstore-backend/internal/repository/postgres"
	"herbalstore-backend/internal/usecase"
	"herbalstore-backend/pkg/logger"
	"herbalstore-backend/pkg/utils"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	// Initialize Database
	pgxPool, err := postgres.NewPgxPool(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Successfully connected to PostgreSQL")

	// Initialize Repositories
	userRepo := postgres.NewUserRepository(pgxPool)
	productRepo := postgres.NewProductRepository(pgxPool)
	orderRepo := postgres.NewOrderRepository(pgxPool)
	couponRepo := postgres.NewCouponRepository(pgxPool)
	txManager := postgres.NewTransactionManager(pgxPool)

	// Initialize Cache (In-Memory)
	memCache := cache.NewMemoryCache(cfg.CacheCouponTTL, 10*time.Minute)

	// Order event publisher (Kafka, optional)
	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Kafka")
		}
		publisher = kafkaPub
		log.Info().Strs("brokers", cfg.KafkaBrokers).Msg("Order events enabled")
	}

	// Set up Router
	mux := http.NewServeMux()

	// --- Modules Initialization ---

	// Coupon Module
	couponUC := usecase.NewCouponUsecase(couponRepo, userRepo, orderRepo, memCache)
	couponHandler := v1.NewCouponHandler(couponUC)
	adminCouponHandler := v1.NewAdminCouponHandler(couponUC)

	// Order Module
	orderUC := usecase.NewOrderUsecase(orderRepo, productRepo, couponUC, txManager, publisher, log)
	orderHandler := v1.NewOrderHandler(orderUC)
	adminOrderHandler := v1.NewAdminOrderHandler(orderUC)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(h)
	}
	staff := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.StaffMiddleware(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}

	// Orders
	mux.Handle("POST /api/orders", authed(orderHandler.CreateOrder))
	mux.Handle("GET /api/orders/myorders", authed(orderHandler.GetMyOrders))
	mux.Handle("GET /api/orders/{id}", authed(orderHandler.GetOrder))
	mux.Handle("GET /api/orders/{id}/invoice", authed(orderHandler.GetInvoice))
	mux.Handle("PUT /api/orders/{id}/pay", authed(orderHandler.PayOrder))
	mux.Handle("PUT /api/orders/{id}/cancel", authed(orderHandler.CancelOrder))

	// Orders (Staff/Admin)
	mux.Handle("GET /api/orders", staff(adminOrderHandler.ListOrders))
	mux.Handle("PUT /api/orders/{id}/status", staff(adminOrderHandler.UpdateStatus))
	mux.Handle("DELETE /api/orders/{id}", admin(adminOrderHandler.DeleteOrder))

	// Coupons
	mux.Handle("POST /api/coupons/validate", authed(couponHandler.ValidateCoupon))
	mux.Handle("GET /api/coupons/available", authed(couponHandler.AvailableCoupons))

	// Coupons (Admin)
	mux.Handle("POST /api/coupons", admin(adminCouponHandler.CreateCoupon))
	mux.Handle("GET /api/coupons", admin(adminCouponHandler.ListCoupons))
	mux.Handle("GET /api/coupons/{id}", admin(adminCouponHandler.GetCoupon))
	mux.Handle("PUT /api/coupons/{id}", admin(adminCouponHandler.UpdateCoupon))
	mux.Handle("PATCH /api/coupons/{id}/toggle", admin(adminCouponHandler.ToggleCoupon))
	mux.Handle("GET /api/coupons/{id}/stats", admin(adminCouponHandler.CouponStats))
	mux.Handle("DELETE /api/coupons/{id}", admin(adminCouponHandler.DeleteCoupon))

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok", "db": "connected"}`))
	}
	mux.HandleFunc("GET /api/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler)

	addr := fmt.Sprintf(":%s", cfg.Port)

	// Rate limiter lifecycle: cleanup every minute, clients stale after 3m
	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		rate.Limit(cfg.RateLimitRPS),
		cfg.RateLimitBurst,
		time.Minute,
		3*time.Minute,
	)

	// Apply CORS, Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	log.Info().Msgf("Server starting on %s", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close event publisher")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	pgxPool.Close()

	log.Info().Msg("Server exited properly")
}

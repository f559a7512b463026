package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/shopnet/api/internal/handlers"
	"github.com/shopnet/api/internal/platform/auth"
	"github.com/shopnet/api/internal/platform/config"
	"github.com/shopnet/api/internal/platform/observability"
	"github.com/shopnet/api/internal/platform/requestctx"
	"github.com/shopnet/api/internal/repositories/gormrepo"
	"github.com/shopnet/api/internal/services"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("SHOPNET_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	db, err := gormrepo.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := gormrepo.AutoMigrate(db); err != nil {
		logger.Fatal("failed to migrate database schema", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to access database pool", zap.Error(err))
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("database close error", zap.Error(err))
		}
	}()

	unitOfWork := gormrepo.NewUnitOfWork(db)
	orderRepo := gormrepo.NewOrderRepository(db)
	trackingRepo := gormrepo.NewTrackingRepository(db)
	orderItemRepo := gormrepo.NewOrderItemRepository(db)
	productRepo := gormrepo.NewProductRepository(db)
	cartRepo := gormrepo.NewCartRepository(db)
	reviewRepo := gormrepo.NewReviewRepository(db)

	eventLogger := observability.EventLogger(logger)

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     orderRepo,
		Trackings:  trackingRepo,
		Products:   productRepo,
		Carts:      cartRepo,
		UnitOfWork: unitOfWork,
		Logger:     eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	adminOrderService, err := services.NewAdminOrderService(services.AdminOrderServiceDeps{
		Orders:     orderRepo,
		Trackings:  trackingRepo,
		UnitOfWork: unitOfWork,
		Logger:     eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise admin order service", zap.Error(err))
	}

	reviewService, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews:    reviewRepo,
		OrderItems: orderItemRepo,
		Products:   productRepo,
		UnitOfWork: unitOfWork,
		Logger:     eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise review service", zap.Error(err))
	}

	authn := auth.NewAuthenticator([]byte(cfg.Auth.JWTSecret), auth.WithIssuer(cfg.Auth.Issuer))

	orderHandlers := handlers.NewOrderHandlers(authn, orderService)
	adminHandlers := handlers.NewAdminOrderHandlers(authn, adminOrderService)
	reviewHandlers := handlers.NewReviewHandlers(authn, reviewService)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthCheck("database", func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		}),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(requestLogging(logger)),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithReviewRoutes(reviewHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// requestLogging attaches a request-scoped logger carrying the request id.
func requestLogging(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := base
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				reqLogger = base.With(zap.String("requestId", reqID))
			}
			ctx := requestctx.WithLogger(r.Context(), reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evo-store/internal/auth"
	"evo-store/internal/config"
	"evo-store/internal/database"
	"evo-store/internal/events"
	"evo-store/internal/gateway"
	"evo-store/internal/handler"
	"evo-store/internal/invoice"
	"evo-store/internal/lock"
	"evo-store/internal/middleware"
	"evo-store/internal/notify"
	"evo-store/internal/repository"
	"evo-store/internal/router"
	"evo-store/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, "evo-api")
	logger.Info().Msg("starting evo-store API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	analyticsRepo := repository.NewAnalyticsRepository(pool, logger)

	// Callback lock store, optional
	var locker lock.Locker = lock.NopLocker{}
	if cfg.Redis.Enabled {
		redisClient, err := lock.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to connect to redis, callbacks rely on the database guard only")
		} else {
			defer redisClient.Close()
			locker = lock.NewRedisLocker(redisClient, cfg.Redis.LockTTL, logger)
		}
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}

	if cfg.Payment.SecretKey == "" {
		logger.Warn().Msg("payment secret key not set, checkout will fail at bill creation")
	}
	gw := gateway.New(cfg.Payment, logger)

	notifier := notify.NewNotifier(notify.NewSMTPMailer(cfg.Mail), cfg.Store, cfg.Mail.Timeout, logger)
	publisher := events.NewPublisher(cfg.Kafka, logger)
	defer publisher.Close()

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, paymentRepo, gw, notifier, publisher, cfg.Store.OrderNumberPrefix, logger)
	paymentService := service.NewPaymentService(orderRepo, productRepo, paymentRepo, gw, locker, notifier, publisher, cfg.Payment.VerifyCallbacks, logger)
	authService := service.NewAuthService(userRepo, tokens, logger)
	adminService := service.NewAdminService(orderRepo, paymentRepo, userRepo, analyticsRepo, notifier, publisher, invoice.NewRenderer(cfg.Store), logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Payments: handler.NewPaymentHandler(paymentService, cfg.Store.TrackingURL, logger),
		Auth:     handler.NewAuthHandler(authService, logger),
		Admin:    handler.NewAdminHandler(adminService, logger),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.TrustProxy, logger)
	go limiter.Cleanup(ctx, time.Minute)

	// Initialize router
	mux := router.New(handlers, router.Options{
		Guard:       middleware.NewAuth(tokens, logger),
		Limiter:     limiter,
		BotKey:      cfg.Auth.BotKey,
		CORSOrigins: cfg.Server.CORSOrigins,
		Debug:       cfg.Debug.Enabled,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// Drain in-flight emails before the pool and publisher close
		if err := notifier.Close(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("pending notifications abandoned")
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

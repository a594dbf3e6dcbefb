package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gymcrm/gymcrm-backend/internal/cache"
	"github.com/gymcrm/gymcrm-backend/internal/config"
	"github.com/gymcrm/gymcrm-backend/internal/handler"
	"github.com/gymcrm/gymcrm-backend/internal/messaging"
	"github.com/gymcrm/gymcrm-backend/internal/middleware"
	"github.com/gymcrm/gymcrm-backend/internal/observability"
	"github.com/gymcrm/gymcrm-backend/internal/payment"
	"github.com/gymcrm/gymcrm-backend/internal/repository/postgres"
	"github.com/gymcrm/gymcrm-backend/internal/repository/storage"
	"github.com/gymcrm/gymcrm-backend/internal/scheduler"
	"github.com/gymcrm/gymcrm-backend/internal/service"
	"github.com/gymcrm/gymcrm-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
	}

	// Initialize repositories
	gymRepo := postgres.NewGymRepository(pool)
	memberRepo := postgres.NewMemberRepository(pool)
	billingRepo := postgres.NewBillingRepository(pool)

	// Metrics
	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Dashboard cache
	var summaryCache cache.DashboardCache
	switch cfg.Cache.Driver {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.TTL)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		summaryCache = redisCache
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Dashboard cache backed by Redis")
	default:
		summaryCache = cache.NewMemoryCache(cache.DefaultMaxGyms, cfg.Cache.TTL)
	}

	// Event fan-out
	hub := websocket.NewHub()
	hub.SetMetrics(metrics)
	publisher := messaging.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log.Logger)
	defer publisher.Close()

	settings := service.BillingSettings{
		MonthlyFee:       cfg.Billing.MonthlyFee,
		Currency:         cfg.Billing.Currency,
		Location:         cfg.Billing.Location,
		HistoryMaxMonths: cfg.Billing.HistoryMaxMonths,
	}

	// Initialize services
	authService := service.NewAuthService(gymRepo, service.DefaultOwnerCacheSize, service.DefaultOwnerCacheTTL)

	dashboardService := service.NewDashboardService(gymRepo, memberRepo, summaryCache, settings)
	dashboardService.SetEventPublisher(hub)
	dashboardService.SetMetrics(metrics)

	billingService := service.NewBillingService(gymRepo, memberRepo, billingRepo, settings)
	billingService.SetEventPublisher(hub)
	billingService.SetNotifier(publisher)
	billingService.SetMetrics(metrics)
	billingService.SetDashboardInvalidator(dashboardService)
	if cfg.Razorpay.KeySecret != "" {
		billingService.SetPaymentVerifier(payment.NewRazorpayVerifier(cfg.Razorpay.KeySecret))
	} else {
		log.Warn().Msg("RAZORPAY_KEY_SECRET not set, razorpay payments will be rejected")
	}
	if cfg.S3.Bucket != "" {
		archive, err := storage.NewS3BillingArchive(ctx, cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize billing archive")
		}
		billingService.SetArchiver(archive)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Finalized bills will be archived to S3")
	}

	// Month rollover
	finalizeWorker, err := scheduler.NewFinalizeWorker(billingService, log.Logger, scheduler.FinalizeWorkerConfig{
		Schedule:   cfg.Billing.FinalizeCron,
		Location:   cfg.Billing.Location,
		RunOnStart: cfg.Billing.FinalizeCron != "",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create finalize worker")
	}
	if cfg.Billing.FinalizeCron != "" {
		if err := finalizeWorker.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start finalize worker")
		}
	}

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authService, cfg.AdminAuth0IDs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create websocket token validator")
	}
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	if cfg.InternalAPIKey == "" {
		log.Warn().Msg("INTERNAL_API_KEY not set, internal routes are disabled")
	}

	// Initialize handlers
	billingHandler := handler.NewBillingHandler(billingService)
	adminBillingHandler := handler.NewAdminBillingHandler(billingService, finalizeWorker)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	internalHandler := handler.NewInternalHandler(finalizeWorker)
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins, handler.WebSocketOptions{
		MaxConnectionsPerGym: cfg.WebSocket.MaxConnectionsPerGym,
		Client:               websocket.ClientConfig{SendBuffer: cfg.WebSocket.SendBuffer},
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Request metrics
	e.Use(observability.HTTPMetricsMiddleware(metrics))

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", observability.MetricsHandler(registry))
	e.GET("/ws", wsHandler.HandleWS)

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, cfg.InternalAPIKey, billingHandler, adminBillingHandler, dashboardHandler, internalHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	finalizeWorker.Stop()
	rateLimiter.Stop()
	hub.CloseAll()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/database"
	"github.com/airvoya/booking-backend/internal/handlers"
	"github.com/airvoya/booking-backend/internal/middleware"
	"github.com/airvoya/booking-backend/internal/pricing"
	"github.com/airvoya/booking-backend/internal/providers"
	"github.com/airvoya/booking-backend/internal/routing"
	"github.com/airvoya/booking-backend/internal/services"
	"github.com/airvoya/booking-backend/pkg/jwt"
	"github.com/airvoya/booking-backend/pkg/queue"
	"github.com/airvoya/booking-backend/pkg/telegram"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Airvoya Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	bookingRepo := database.NewBookingRepository(db)
	cardAuthRepo := database.NewCardAuthRepository(db)

	// Alert queue: degraded mode (synchronous delivery) when Redis is down
	var alertQueue *queue.RedisQueue
	alertQueue, err = queue.NewRedisQueue(queue.Config{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		QueueName: cfg.Alerts.QueueName,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Alert queue unavailable, alerts will be delivered synchronously")
		alertQueue = nil
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	bot := telegram.NewBot(cfg.Alerts.TelegramToken)
	alertService := services.NewAlertService(alertQueue, bot, cfg.Alerts.AdminChatIDs, logger)

	instantClient := providers.NewInstantClient(cfg.Providers.Instant, logger)
	gdsClient := providers.NewGDSClient(cfg.Providers.GDS, logger)

	markupEngine := pricing.NewEngine(cfg.Markup)
	routingDecider := routing.NewDecider(cfg.Routing)

	reconcileService := services.NewReconcileService(gdsClient, markupEngine, alertService, logger)
	coordinator := services.NewBookingCoordinator(instantClient, gdsClient, logger)
	paymentService := services.NewPaymentService(&cfg.Payment, logger)
	referenceService := services.NewReferenceService()

	orchestrator := services.NewBookingOrchestratorService(
		referenceService,
		reconcileService,
		markupEngine,
		routingDecider,
		coordinator,
		paymentService,
		bookingRepo,
		cardAuthRepo,
		alertService,
		cfg.Booking,
		logger,
	)

	logger.Info("Services initialized")

	// Start the alert worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go alertService.Run(workerCtx)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(orchestrator, bookingRepo, cfg.Server.SearchURL, logger)
	webhookHandler := handlers.NewPaymentWebhookHandler(paymentService, bookingRepo, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db, alertQueue))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Booking routes: guests may book, authenticated bookings link to
		// the account
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.OptionalAuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:reference", bookingHandler.GetBooking)
		}

		// Account routes
		account := v1.Group("/bookings")
		account.Use(middleware.AuthMiddleware(jwtService))
		{
			account.GET("", bookingHandler.ListBookings)
		}

		// Operator routes
		operator := v1.Group("/bookings")
		operator.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole("operator", "admin"))
		{
			operator.POST("/:reference/ticket", bookingHandler.CompleteTicketing)
		}

		// Processor webhooks (signature-verified, no JWT)
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/payment", webhookHandler.HandleWebhook)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the alert worker before closing its queue
	stopWorker()
	if alertQueue != nil {
		if err := alertQueue.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close alert queue")
		}
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, alertQueue *queue.RedisQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		queueStatus := "disabled"
		if alertQueue != nil {
			queueStatus = "healthy"
			if err := alertQueue.HealthCheck(c.Request.Context()); err != nil {
				queueStatus = "unhealthy"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"database":    "healthy",
			"alert_queue": queueStatus,
			"version":     version,
			"timestamp":   time.Now().Unix(),
		})
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicpulse/service-emergency/internal/application"
	"github.com/civicpulse/service-emergency/internal/config"
	bookingDomain "github.com/civicpulse/service-emergency/internal/domain/booking"
	"github.com/civicpulse/service-emergency/internal/domain/catalog"
	"github.com/civicpulse/service-emergency/internal/events"
	"github.com/civicpulse/service-emergency/internal/gateway"
	"github.com/civicpulse/service-emergency/internal/handler"
	"github.com/civicpulse/service-emergency/internal/jobs"
	"github.com/civicpulse/service-emergency/internal/platform/auth"
	"github.com/civicpulse/service-emergency/internal/platform/database"
	"github.com/civicpulse/service-emergency/internal/platform/health"
	"github.com/civicpulse/service-emergency/internal/platform/kafka"
	"github.com/civicpulse/service-emergency/internal/platform/logger"
	"github.com/civicpulse/service-emergency/internal/platform/middleware"
	"github.com/civicpulse/service-emergency/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-emergency")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-emergency",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}, &repository.PaymentSessionModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize payment provider
	stripe.Key = cfg.Stripe.APIKey
	paymentGateway := gateway.NewStripeGateway(
		cfg.Stripe.WebhookSecret,
		cfg.Stripe.SuccessURL,
		cfg.Stripe.CancelURL,
		log,
	)

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	sessionRepo := repository.NewGormSessionRepository(db)

	// Initialize domain services
	serviceCatalog := catalog.Default(cfg.Currency)
	feeCalculator := bookingDomain.NewFeeCalculator(
		bookingDomain.StandardUrgencyMultipliers(),
		cfg.Pricing.RemoteSurchargeRate,
		cfg.Pricing.TaxRate,
	)

	// Initialize application service
	publisher := events.NewPublisher(kafkaProducer, log)
	bookingService := application.NewBookingService(
		bookingRepo,
		sessionRepo,
		paymentGateway,
		serviceCatalog,
		feeCalculator,
		publisher,
		log,
	)

	// Start the pending-payment expiry sweeper
	sweeper, err := jobs.NewExpirySweeper(bookingService, cfg.Expiry, log)
	if err != nil {
		log.Fatal("failed to create expiry sweeper", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)
	paymentHandler := handler.NewPaymentHandler(bookingService)
	adminHandler := handler.NewAdminBookingHandler(bookingService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-emergency")
	healthHandler.RegisterRoutes(router)

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	paymentHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-emergency...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-emergency stopped")
}

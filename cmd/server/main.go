package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/events"
	"dispatch/internal/handler"
	"dispatch/internal/jobs"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Optional Kafka publisher for delivery lifecycle events.
	var publisher *events.Publisher
	if cfg.Kafka.Enabled {
		publisher = events.NewPublisher(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
		defer publisher.Close()
		log.Printf("Kafka publisher enabled: topic=%s", cfg.Kafka.Topic)
	}

	// Wire dependencies.
	server, jobManager := wireServer(db, redisClient, publisher, nrApp, cfg)

	// Start background jobs.
	if jobManager != nil {
		if err := jobManager.StartAll(); err != nil {
			log.Fatalf("failed to start jobs: %v", err)
		}
		defer jobManager.StopAll()
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// background job manager (nil when the sweep is disabled).
func wireServer(db *sql.DB, redisClient *redis.Client, publisher *events.Publisher, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *jobs.JobManager) {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	hubRepo := postgres.NewHubRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	deliveryRepo := postgres.NewDeliveryRepository(db)

	// Initialize services.
	notificationService := service.NewNotificationService()
	orderSync := service.NewLogOrderSync()
	routingService := service.NewRoutingService(hubRepo)
	matchingService := service.NewMatchingService(driverRepo, lockStore, cacheStore)
	trackingGenerator := service.NewTrackingGenerator(cfg.Tracking.Prefix, deliveryRepo)

	// The publisher is optional; assign through a typed variable so a nil
	// *events.Publisher never reaches the service as a non-nil interface.
	var eventPublisher service.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}

	deliveryService := service.NewDeliveryService(
		deliveryRepo,
		hubRepo,
		routingService,
		matchingService,
		trackingGenerator,
		notificationService,
		orderSync,
		eventPublisher,
		lockStore,
		cacheStore,
	)
	driverService := service.NewDriverService(driverRepo, hubRepo, cacheStore)

	// Initialize handlers.
	deliveryHandler := handler.NewDeliveryHandler(deliveryService)
	driverHandler := handler.NewDriverHandler(driverService)
	hubHandler := handler.NewHubHandler(hubRepo, cacheStore)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		DeliveryHandler: deliveryHandler,
		DriverHandler:   driverHandler,
		HubHandler:      hubHandler,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	// Background jobs.
	var jobManager *jobs.JobManager
	if cfg.Jobs.SweepEnabled {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		jobManager = jobs.NewJobManager(deliveryRepo, deliveryService, cfg.Jobs.SweepSchedule, logger)
	}

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, jobManager
}

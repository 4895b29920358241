package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightops-service/internal/infrastructure/config"
	"flightops-service/internal/infrastructure/persistence"
	entityRouter "flightops-service/internal/infrastructure/router"
	"flightops-service/internal/interface/intake"
	storeRepo "flightops-service/internal/interface/repository"
	"flightops-service/internal/usecase"
	"flightops-service/pkg/logger"
	"flightops-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	domainRepo "flightops-service/internal/domain/repository"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting FlightOps Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection (flights and schedules)
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	scheduleRepo := storeRepo.NewMongoScheduleRepository(db)
	flightRepo := storeRepo.NewMongoFlightRepository(db, log)

	// Set up reference catalogs when a PostgreSQL DSN is configured
	var catalog *usecase.CatalogCache
	if cfg.PostgresURI != "" {
		gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		catalog = usecase.NewCatalogCache(
			storeRepo.NewGormAirlineRepository(gormDB),
			storeRepo.NewGormDestinationRepository(gormDB),
			storeRepo.NewGormGateRepository(gormDB),
			log,
		)
		if err := catalog.Refresh(ctx); err != nil {
			log.Error("Initial catalog refresh failed", "error", err)
		}
	} else {
		log.Warn("POSTGRES_DSN not set, reference validation disabled")
	}

	// Set up event publisher
	var publisher domainRepo.EventPublisher
	if cfg.EventEndpoint != "" {
		publisher = storeRepo.NewWebhookEventPublisher(cfg.EventEndpoint, cfg.EventToken, log)
	} else {
		log.Warn("EVENT_ENDPOINT not set, events are logged only")
		publisher = storeRepo.NewLogEventPublisher(log)
	}

	// Set up the scheduling engine and router
	m := metrics.NewMetrics(prometheus.DefaultRegisterer, "flightops")
	engine := usecase.NewEngine(ctx, scheduleRepo, flightRepo, publisher, catalog, usecase.EngineConfig{
		MaterializeHorizon:  cfg.MaterializeHorizon,
		GateAlertWindow:     cfg.GateAlertWindow,
		SelfMonitorInterval: cfg.SelfMonitorInterval,
	}, log, m)
	router := entityRouter.NewEntityRouter(engine, log)
	engine.Bind(router)

	// Rehydrate schedules and active flights, re-establishing timers
	if err := engine.Recover(ctx); err != nil {
		log.Fatal("Recovery failed", "error", err)
	}

	// Refresh reference catalogs on a cron schedule
	var catalogCron *cron.Cron
	if catalog != nil {
		catalogCron = cron.New()
		_, err := catalogCron.AddFunc(cfg.CatalogRefreshCron, func() {
			if err := catalog.Refresh(ctx); err != nil {
				log.Error("Catalog refresh failed", "error", err)
			}
		})
		if err != nil {
			log.Fatal("Invalid catalog refresh cron expression", "error", err)
		}
		catalogCron.Start()
	}

	// Set up HTTP server: command intake, metrics, health
	mux := http.NewServeMux()
	commandServer := intake.NewCommandServer(router, log, m)
	commandServer.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	if catalogCron != nil {
		catalogCron.Stop()
	}

	cancel() // Cancel the context to stop all workers

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("FlightOps Service stopped")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"triplog/internal/app"
	"triplog/internal/config"
	"triplog/internal/handler"
	internalRedis "triplog/internal/redis"
	"triplog/internal/repository"
	fsstore "triplog/internal/repository/firestore"
	"triplog/internal/repository/sqlstore"
	"triplog/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before the stores so we can instrument them).
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
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	// Initialize the configured trip store backend.
	var tripStore repository.TripStore
	var userStore repository.UserStore
	switch cfg.Store.Backend {
	case "sqlite":
		db, err := app.NewSQLiteDatabase(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("failed to open sqlite database: %v", err)
		}
		defer db.Close()
		tripStore = sqlstore.NewTripStore(db, sqlstore.DialectSQLite)
		userStore = sqlstore.NewUserStore(db, sqlstore.DialectSQLite)
		log.Printf("Using SQLite store at %s", cfg.Database.Path)
	case "postgres":
		db, err := app.NewPostgresDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		tripStore = sqlstore.NewTripStore(db, sqlstore.DialectPostgres)
		userStore = sqlstore.NewUserStore(db, sqlstore.DialectPostgres)
		log.Println("Connected to PostgreSQL")
	case "firestore":
		client, err := app.NewFirestoreClient(ctx, cfg.Firestore)
		if err != nil {
			log.Fatalf("failed to connect to firestore: %v", err)
		}
		defer client.Close()
		tripStore = fsstore.NewTripStore(client)
		userStore = fsstore.NewUserStore(client)
		log.Printf("Connected to Firestore project %s", cfg.Firestore.ProjectID)
	default:
		log.Fatalf("unknown store backend %q", cfg.Store.Backend)
	}

	// Initialize Redis with New Relic instrumentation.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Connected to Redis")
	}

	// Wire dependencies.
	server, recordings := wireServer(tripStore, userStore, redisClient, nrApp, cfg)
	defer recordings.Close()

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

// wireServer wires all dependencies and returns the HTTP server together
// with the recording service so shutdown can release its subscriptions.
func wireServer(tripStore repository.TripStore, userStore repository.UserStore, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.RecordingService) {
	// Initialize Redis stores; all optional.
	var tripCache internalRedis.TripCache
	var lockStore internalRedis.CommitLocker
	var liveStore internalRedis.LiveFixStore
	if redisClient != nil {
		tripCache = internalRedis.NewCacheStore(redisClient)
		lockStore = internalRedis.NewLockStore(redisClient)
		liveStore = internalRedis.NewLiveStore(redisClient)
	}

	// Initialize services.
	tripService := service.NewTripService(tripStore, tripCache, cfg.Recording.AtomicCommit)
	recordingService := service.NewRecordingService(tripService, lockStore, liveStore,
		service.WithSampleInterval(cfg.Recording.SampleInterval),
	)

	// Initialize handlers.
	userHandler := handler.NewUserHandler(userStore)
	tripHandler := handler.NewTripHandler(tripService)
	recordingHandler := handler.NewRecordingHandler(recordingService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		UserHandler:      userHandler,
		TripHandler:      tripHandler,
		RecordingHandler: recordingHandler,
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, recordingService
}

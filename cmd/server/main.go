package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/driftsync/driftsync-api/internal/config"
	"github.com/driftsync/driftsync-api/internal/extract"
	"github.com/driftsync/driftsync-api/internal/handlers"
	"github.com/driftsync/driftsync-api/internal/middleware"
	"github.com/driftsync/driftsync-api/internal/migration"
	"github.com/driftsync/driftsync-api/internal/notification"
	"github.com/driftsync/driftsync-api/internal/orchestrator"
	"github.com/driftsync/driftsync-api/internal/repository"
	"github.com/driftsync/driftsync-api/internal/routes"
	"github.com/driftsync/driftsync-api/internal/schema"
	"github.com/driftsync/driftsync-api/internal/statestore"
	dt "github.com/driftsync/driftsync-api/internal/temporal"
	"github.com/driftsync/driftsync-api/internal/temporal/activities"
	dw "github.com/driftsync/driftsync-api/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config         *config.Config
	db             *sql.DB
	store          *statestore.RedisStore
	temporalClient tc.Client
	logger         zerolog.Logger
	notifications  notification.Service
	orchestrator   *orchestrator.Orchestrator
	schemas        *schema.Service
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	if err := migration.Run(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize the job state store.
	store := statestore.NewRedisStore(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Redis.JobTTL)
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping Redis")
	}

	// Initialize notification service.
	notificationRepo := repository.NewNotificationRepository(db)
	notificationService := notification.NewService(notificationRepo, logger, notification.NewLogNotifier(logger))

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    dt.NewLogAdapter(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	schemaRepo := repository.NewSchemaRepository(db)
	schemaService := schema.NewService(schemaRepo, notificationService, logger)

	// Create the application instance.
	app := &application{
		config:         cfg,
		db:             db,
		store:          store,
		temporalClient: temporalClient,
		logger:         logger,
		notifications:  notificationService,
		orchestrator:   orchestrator.New(store, temporalClient, logger),
		schemas:        schemaService,
	}

	// Start the Temporal worker in a separate goroutine.
	temporalWorker := app.startTemporalWorker(logger)

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	sourceRepo := repository.NewSourceRepository(app.db)
	syncTableRepo := repository.NewSyncTableRepository(app.db)
	scheduleRepo := repository.NewScheduleRepository(app.db)

	authHandler := handlers.NewAuthHandler(app.db, app.config, logger)
	sourceHandler := handlers.NewSourceHandler(sourceRepo, app.schemas, logger)
	syncTableHandler := handlers.NewSyncTableHandler(syncTableRepo, sourceRepo, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, logger)
	extractionHandler := handlers.NewExtractionHandler(app.orchestrator, logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)
	userHandler := handlers.NewUserHandler(repository.NewUserRepository(app.db), logger)

	return routes.NewRouter(authHandler, sourceHandler, syncTableHandler, scheduleHandler, extractionHandler, notificationHandler, userHandler)
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	sink, err := buildSink(app.config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to configure extraction sink")
	}

	activityImpl := &activities.Activities{
		Store:      app.store,
		SourceRepo: repository.NewSourceRepository(app.db),
		Sink:       sink,
		Notifier:   app.notifications,
		Logger:     logger,
	}

	return dw.Start(app.temporalClient, activityImpl, logger)
}

// buildSink selects the staging target for extracted batches.
func buildSink(cfg *config.Config, logger zerolog.Logger) (extract.Sink, error) {
	switch cfg.Extract.Staging {
	case "s3":
		return extract.NewS3Sink(context.Background(), cfg.Extract.S3Bucket, cfg.Extract.S3Prefix, cfg.Extract.S3Region, logger)
	default:
		return extract.NewLocalSink(cfg.Extract.OutputDir, logger)
	}
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}

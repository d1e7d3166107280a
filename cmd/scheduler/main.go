package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"

	"github.com/driftsync/driftsync-api/internal/config"
	"github.com/driftsync/driftsync-api/internal/orchestrator"
	"github.com/driftsync/driftsync-api/internal/repository"
	"github.com/driftsync/driftsync-api/internal/scheduler"
	"github.com/driftsync/driftsync-api/internal/statestore"
	dt "github.com/driftsync/driftsync-api/internal/temporal"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// The scheduler runs as a single instance alongside the API server. It only
// submits workflows; the server's Temporal worker executes them.
func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	store := statestore.NewRedisStore(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Redis.JobTTL)
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping Redis")
	}

	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    dt.NewLogAdapter(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	orch := orchestrator.New(store, temporalClient, logger)
	sched := scheduler.New(
		repository.NewScheduleRepository(db),
		repository.NewSyncTableRepository(db),
		orch,
		cfg.Scheduler.CheckInterval,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("Scheduler exited with error")
	}
	logger.Info().Msg("Scheduler terminated.")
}

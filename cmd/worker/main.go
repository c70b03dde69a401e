// Package main provides the entrypoint for the weerpunt prefetch worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/weerpunt/weerpunt/internal/database"
	"github.com/weerpunt/weerpunt/internal/provider/resilience"
	"github.com/weerpunt/weerpunt/internal/weather"
	"github.com/weerpunt/weerpunt/internal/weather/knmi"
	"github.com/weerpunt/weerpunt/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "weerpunt-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting weerpunt worker")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Observation cache. The worker exists to warm a persistent cache, so a
	// database is expected; the in-memory fallback only helps local runs.
	var repository weather.ObservationRepository
	if os.Getenv("DB_ENABLED") == "true" {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure database schema")
		}
		repository = weather.NewPostgresRepository(pool)
	} else {
		log.Warn().Msg("no database configured, warming an in-memory cache")
		repository = weather.NewMemoryRepository(time.Hour)
	}

	stationsPath := os.Getenv("KNMI_STATIONS_PATH")
	if stationsPath == "" {
		stationsPath = "data/stations.txt"
	}

	provider := knmi.NewClient(knmi.ClientConfig{
		BaseURL:      os.Getenv("KNMI_BASE_URL"),
		StationsPath: stationsPath,
		HTTPClient: resilience.NewClient(resilience.ClientConfig{
			Name:            knmi.ProviderName,
			Timeout:         30 * time.Second,
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		}),
	})

	service := weather.NewService(weather.ServiceConfig{
		Provider:   provider,
		Repository: repository,
		Logger:     log,
	})

	prefetchJob := worker.NewPrefetchJob(worker.PrefetchJobConfig{
		Config:  worker.PrefetchConfigFromEnv(),
		Service: service,
		Logger:  log,
	})

	// Health endpoint for the container runtime.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Pub/Sub subscription for on-demand prefetch jobs.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			PrefetchJob:      prefetchJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer pubsubHandler.Close()

		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Warn().Msg("pubsub not configured, running scheduled prefetch only")
	}

	// Scheduled warm-up: run once at start, then on an interval.
	interval := 6 * time.Hour
	if v, err := time.ParseDuration(os.Getenv("PREFETCH_INTERVAL")); err == nil && v > 0 {
		interval = v
	}

	go func() {
		prefetchJob.Run(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prefetchJob.Run(ctx)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// Package main provides the entrypoint for the weerpunt API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/weerpunt/weerpunt/internal/api"
	"github.com/weerpunt/weerpunt/internal/api/handler"
	"github.com/weerpunt/weerpunt/internal/api/middleware"
	"github.com/weerpunt/weerpunt/internal/auth"
	"github.com/weerpunt/weerpunt/internal/database"
	"github.com/weerpunt/weerpunt/internal/provider/resilience"
	"github.com/weerpunt/weerpunt/internal/telemetry"
	"github.com/weerpunt/weerpunt/internal/weather"
	"github.com/weerpunt/weerpunt/internal/weather/knmi"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "weerpunt-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting weerpunt API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to the observation cache database. The service can run without
	// one, falling back to an in-memory cache.
	var repository weather.ObservationRepository
	var dbPinger handler.Pinger

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
		dbPinger = pool
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	} else {
		repository = weather.NewMemoryRepository(time.Hour)
		log.Info().Msg("using in-memory observation cache")
	}

	// Resilient upstream client, registered for ops health reporting.
	registry := resilience.NewRegistry()
	knmiHTTP := resilience.NewClient(resilience.ClientConfig{
		Name:            knmi.ProviderName,
		Timeout:         15 * time.Second,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	})
	registry.Register(knmi.ProviderName, knmiHTTP)

	stationsPath := os.Getenv("KNMI_STATIONS_PATH")
	if stationsPath == "" {
		stationsPath = "data/stations.txt"
	}

	provider := knmi.NewClient(knmi.ClientConfig{
		BaseURL:      os.Getenv("KNMI_BASE_URL"),
		StationsPath: stationsPath,
		HTTPClient:   knmiHTTP,
	})

	service := weather.NewService(weather.ServiceConfig{
		Provider:   provider,
		Repository: repository,
		Logger:     log,
	})
	log.Info().Msg("estimation service initialized")

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	tokens := auth.NewTokenService(auth.TokenConfig{
		SigningKey: jwtSigningKey,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:  service,
		Registry: registry,
		Tokens:   tokens,
		DB:       dbPinger,
		Logger:   log,
		Metrics:  metrics,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

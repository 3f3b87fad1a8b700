package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"regional-stats/internal/cache"
	"regional-stats/internal/config"
	"regional-stats/internal/handlers"
	"regional-stats/internal/interpretation"
	"regional-stats/internal/models"
	"regional-stats/internal/repository"
	"regional-stats/internal/services"
	"regional-stats/internal/sources/bps"
	"regional-stats/pkg/database"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("regional-stats-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting regional statistics API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
		"cache":       cfg.Cache.Enabled,
	})

	metricsCollector := metrics.NewCollector("regional_stats")

	db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	var store cache.Store = cache.NoopStore{}
	if cfg.Cache.Enabled {
		client, err := cache.Dial(ctx, cache.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			// The cache is optional; analyses still run without it.
			logger.Warn(ctx, "[STARTUP_CACHE] Redis unavailable, analysis cache disabled", logging.Fields{
				"addr":  cfg.Cache.Addr,
				"error": err.Error(),
			})
		} else {
			defer client.Close()
			store = cache.NewRedisStore(client, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
		}
	}

	repo := repository.NewObservationRepository(db, logger, metricsCollector)

	// Both policies were checked by cfg.Validate.
	analysisPolicy, _ := models.ParseDuplicatePolicy(cfg.Analysis.DuplicatePolicy)

	analysisService := services.NewAnalysisService(repo, repo, store, interpretation.Language(cfg.Analysis.Language), logger, metricsCollector)
	observationService := services.NewObservationService(repo, store, analysisPolicy, logger, metricsCollector)

	bpsClient := bps.NewClient(bps.Config{
		BaseURL:           cfg.Ingestion.BaseURL,
		APIKey:            cfg.Ingestion.APIKey,
		RequestsPerSecond: cfg.Ingestion.RequestsPerSecond,
		Burst:             cfg.Ingestion.Burst,
		Timeout:           cfg.Ingestion.Timeout,
	}, nil, logger)
	ingestionService := services.NewIngestionService(bpsClient, observationService, cfg.Ingestion.DuplicatePolicy, cfg.Ingestion.Concurrency, logger, metricsCollector)

	router := handlers.NewRouter(
		handlers.NewMiddleware(logger, metricsCollector),
		handlers.NewAnalysisHandler(analysisService, logger, metricsCollector),
		handlers.NewObservationHandler(observationService, logger, metricsCollector),
		handlers.NewIngestionHandler(ingestionService, cfg.Ingestion.Jobs, logger, metricsCollector),
	)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

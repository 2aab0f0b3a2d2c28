package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warroomstack/warroom-rca/internal/api"
	"github.com/warroomstack/warroom-rca/internal/cache"
	"github.com/warroomstack/warroom-rca/internal/config"
	"github.com/warroomstack/warroom-rca/internal/detectors"
	"github.com/warroomstack/warroom-rca/internal/engine"
	"github.com/warroomstack/warroom-rca/internal/metrics"
	"github.com/warroomstack/warroom-rca/internal/services"
	"github.com/warroomstack/warroom-rca/internal/storage"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting warroom-rca", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("failed to open report storage", slog.Any("error", err))
		os.Exit(1)
	}
	if history != nil {
		if err := history.Init(ctx); err != nil {
			logger.Error("failed to initialise report storage", slog.Any("error", err))
			os.Exit(1)
		}
		defer history.Close()
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		provider, err := cache.NewLRUProvider(cfg.Cache.Size, cfg.Cache.TTL)
		if err != nil {
			logger.Warn("report cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	table, err := engine.LoadKnowledgeTable(cfg.Rules.Path)
	if err != nil {
		logger.Error("failed to load knowledge table", slog.String("path", cfg.Rules.Path), slog.Any("error", err))
		os.Exit(1)
	}
	if len(table.Rules) == 0 {
		logger.Warn("knowledge table is empty, recommendations degrade to unknown", slog.String("path", cfg.Rules.Path))
	}

	detector, err := detectors.FromConfig(cfg.Detector)
	if err != nil {
		logger.Error("failed to build detector", slog.Any("error", err))
		os.Exit(1)
	}

	correlator, err := engine.NewCorrelator(cfg.Correlation.Window)
	if err != nil {
		logger.Error("failed to build correlator", slog.Any("error", err))
		os.Exit(1)
	}

	pipeline, err := engine.NewPipeline(logger, detector, correlator, engine.NewRootCauseEngine(table, logger))
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	service := services.NewAnalysisService(logger, pipeline, history, cacheProvider, cfg.Cache.TTL)

	server, err := api.NewServer(cfg.Server, service, logger)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("warroom-rca stopped")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/location-analysis/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/location-analysis/internal/adapter/kafka"
	"github.com/couchcryptid/location-analysis/internal/adapter/mapbox"
	"github.com/couchcryptid/location-analysis/internal/analysis"
	"github.com/couchcryptid/location-analysis/internal/catalog"
	"github.com/couchcryptid/location-analysis/internal/config"
	"github.com/couchcryptid/location-analysis/internal/domain"
	"github.com/couchcryptid/location-analysis/internal/observability"
	"github.com/couchcryptid/location-analysis/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.LayerCatalog)
	if err != nil {
		logger.Error("failed to load layer catalog", "path", cfg.LayerCatalog, "error", err)
		os.Exit(1)
	}
	layers, err := cat.Open(ctx)
	if err != nil {
		logger.Error("failed to open layer sources", "path", cfg.LayerCatalog, "error", err)
		os.Exit(1)
	}
	defer layers.Close() //nolint:errcheck // process exit

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled, address input will be rejected")
	}

	inspector := analysis.NewInspector(cfg.MaxConcurrentQueries, logger, metrics)
	analyzer, err := analysis.NewAnalyzer(layers.Layers, inspector, geocoder, logger, metrics)
	if err != nil {
		logger.Error("invalid layer catalog", "path", cfg.LayerCatalog, "error", err)
		os.Exit(1)
	}
	for _, l := range analyzer.Layers() {
		if l.SymbolType == domain.SymbolUnknown {
			logger.Warn("layer renderer is not supported, results will be empty", "layer", l.Title)
		}
	}
	logger.Info("layer catalog loaded", "path", cfg.LayerCatalog, "layers", len(layers.Layers))

	var ready sharedobs.ReadinessChecker = analyzer
	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		processor := pipeline.NewRequestProcessor(analyzer, logger)
		p := pipeline.New(reader, processor, writer, logger, metrics, cfg.BatchSize)
		ready = p

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, analyzer, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

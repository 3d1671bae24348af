package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/sensor-map-service/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/sensor-map-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/sensor-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/sensor-map-service/internal/adapter/mapbox"
	"github.com/couchcryptid/sensor-map-service/internal/config"
	"github.com/couchcryptid/sensor-map-service/internal/observability"
	"github.com/couchcryptid/sensor-map-service/internal/pipeline"
	"github.com/couchcryptid/sensor-map-service/internal/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	var source pipeline.FeedSource
	if cfg.FeedURL != "" {
		source = feed.NewHTTPSource(cfg.FeedURL, cfg.FeedTimeout, logger)
	} else {
		source = feed.NewFileSource(cfg.FeedFile)
	}
	logger.Info("feed source configured", "source", cfg.FeedSource(), "decimal_comma", cfg.FeedDecimalComma)

	opts := pipeline.Options{
		DecimalComma:    cfg.FeedDecimalComma,
		RefreshInterval: cfg.RefreshInterval,
	}

	// Geocoding placement is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder", "error", err)
			os.Exit(1)
		}
		opts.Geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	reg := registry.New()
	ingester := pipeline.New(source, reg, opts, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, reg, ingester, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	go func() {
		if err := ingester.Run(ctx); err != nil {
			logger.Error("ingester error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

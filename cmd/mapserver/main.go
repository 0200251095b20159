package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-trigger-map/internal/adapter/dataset"
	httpadapter "github.com/couchcryptid/climate-trigger-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-trigger-map/internal/adapter/kafka"
	"github.com/couchcryptid/climate-trigger-map/internal/config"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
	"github.com/couchcryptid/climate-trigger-map/internal/observability"
	"github.com/couchcryptid/climate-trigger-map/internal/pipeline"
	"github.com/couchcryptid/climate-trigger-map/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	defs, err := mapdef.Load(cfg.MapDefinitionsPath)
	if err != nil {
		logger.Error("failed to load map definitions", "path", cfg.MapDefinitionsPath, "error", err)
		os.Exit(1)
	}
	renderer, err := render.NewRenderer()
	if err != nil {
		logger.Error("failed to parse map templates", "error", err)
		os.Exit(1)
	}

	source := dataset.NewFileSource(dataset.Paths{
		Triggers:  cfg.TriggerValuesPath,
		Results:   cfg.AdjustedResultsPath,
		Provinces: cfg.ProvincesPath,
		NameField: cfg.ProvinceNameField,
	}, logger)

	// Snapshot publishing is feature-flagged via SNAPSHOT_ENABLED.
	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.SnapshotWriter
	)
	if cfg.SnapshotEnabled {
		writer = kafkaadapter.NewSnapshotWriter(cfg, logger)
		publisher = writer
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	p := pipeline.New(source, renderer, defs, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// /readyz reports 503 until Prepare has loaded the datasets.
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	exitCode := 0
	if err := p.Prepare(ctx); err != nil {
		logger.Error("failed to prepare maps", "error", err)
		exitCode = 1
		stop()
	}

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
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

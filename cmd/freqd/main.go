package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flood-frequency/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-frequency/internal/adapter/kafka"
	"github.com/couchcryptid/flood-frequency/internal/config"
	"github.com/couchcryptid/flood-frequency/internal/observability"
	"github.com/couchcryptid/flood-frequency/internal/pipeline"
	"github.com/couchcryptid/flood-frequency/internal/station"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := station.NewStore()

	deps := httpadapter.Deps{
		Store:            store,
		Metrics:          metrics,
		Logger:           logger,
		FitMaxIterations: cfg.FitMaxIterations,
		FitTolerance:     cfg.FitTolerance,
	}

	// Kafka ingest is optional (KAFKA_ENABLED=false gives an HTTP-only
	// deployment fed through POST /stations/{id}/observations).
	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, pipeline.NewParser(logger), pipeline.NewStoreLoader(store), logger, metrics, cfg.BatchSize)

		deps.Publisher = writer
		deps.Ready = p
	} else {
		logger.Info("kafka ingest disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

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

package main

// Background generation worker. Polls the generation tables for queued
// rows, claims them and runs the AI pipelines:
//   go run ./cmd/worker

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"neurolearn-backend/internal/bootstrap"
	"neurolearn-backend/internal/shared/config"
	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/shared/tracing"
	"neurolearn-backend/internal/workerproc"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "neurolearn-worker", logger)
	if err != nil {
		logger.Warn("tracing.init_failed", "error", err.Error())
	}

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap.failed", "error", err.Error())
	}
	defer app.Close()

	runner := workerproc.NewRunner(
		[]workerproc.Source{
			workerproc.SummarySource(app.Summaries),
			workerproc.FlashcardSource(app.Flashcards),
			workerproc.QuizSource(app.Quizzes),
		},
		cfg.WorkerPollInterval,
		cfg.WorkerStaleAfter,
		cfg.WorkerConcurrency,
		logger,
	)

	logger.Info("worker.started",
		"poll_interval", cfg.WorkerPollInterval.String(),
		"concurrency", cfg.WorkerConcurrency,
		"stale_after", cfg.WorkerStaleAfter.String(),
	)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker.stopped", "error", err.Error())
	}
	logger.Info("worker.shutdown_complete")

	if shutdownTracing != nil {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing.shutdown_failed", "error", err.Error())
		}
	}
}

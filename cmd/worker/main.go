package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/greenvolt/docverify/internal/bootstrap"
	"github.com/greenvolt/docverify/internal/config"
	"github.com/greenvolt/docverify/internal/observability/logging"
	"github.com/greenvolt/docverify/internal/observability/metrics"
)

const service = "docverify-worker"

const processTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", workerMetrics.Handler())
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, mux); err != nil {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentUploaded(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		if doc, err := app.Repo.GetByID(processCtx, documentID); err == nil {
			workerMetrics.ObserveQueueLag(service, time.Since(doc.UploadedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()
		fields, err := app.ProcessUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishDocument(service, time.Since(start), err)
		if err != nil {
			return err
		}
		logger.Info("document_processed", "document_id", documentID, "fields", len(fields))

		// Extraction already succeeded and is persisted, so a failed
		// analysis run is logged but does not fail the message.
		detected, err := app.AnalyzeUC.AnalyzeByID(processCtx, documentID)
		workerMetrics.FinishAnalysis(service, err)
		if err != nil {
			logger.Error("error_analysis_failed", "document_id", documentID, "error", err)
			return nil
		}
		logger.Info("errors_analyzed", "document_id", documentID, "errors", len(detected))
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

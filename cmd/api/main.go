package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/greenvolt/docverify/internal/adapters/http"
	"github.com/greenvolt/docverify/internal/bootstrap"
	"github.com/greenvolt/docverify/internal/config"
	"github.com/greenvolt/docverify/internal/observability/logging"
	"github.com/greenvolt/docverify/internal/observability/metrics"
)

const service = "docverify-api"

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

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	router := httpadapter.NewRouter(
		app.UploadUC,
		app.ProcessUC,
		app.AnalyzeUC,
		app.ReviewUC,
		app.QueryUC,
		app.Exporter,
		httpMetrics,
		logger,
	).Handler()

	root := http.NewServeMux()
	root.Handle("/metrics", httpMetrics.Handler())
	root.Handle("/", httpMetrics.Middleware(service, router))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}

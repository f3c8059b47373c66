package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/greenvolt/docverify/internal/config"
	"github.com/greenvolt/docverify/internal/core/ports"
	"github.com/greenvolt/docverify/internal/core/usecase"
	"github.com/greenvolt/docverify/internal/export"
	"github.com/greenvolt/docverify/internal/infrastructure/llm/openai"
	"github.com/greenvolt/docverify/internal/infrastructure/queue/nats"
	"github.com/greenvolt/docverify/internal/infrastructure/repository/postgres"
	"github.com/greenvolt/docverify/internal/infrastructure/resilience"
	"github.com/greenvolt/docverify/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Repo    ports.DocumentRepository
	ErrRepo ports.ErrorRepository

	UploadUC  ports.DocumentUploader
	ProcessUC ports.DocumentProcessor
	AnalyzeUC ports.DocumentErrorAnalyzer
	ReviewUC  ports.DocumentReviewer
	QueryUC   ports.DocumentQueryService
	Exporter  *export.Service

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	errRepo := postgres.NewErrorRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init file storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(cfg.BreakerMinRequests),
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.BreakerOpenSeconds) * time.Second,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	client := openai.New(openai.Config{
		BaseURL:         cfg.OpenAIBaseURL,
		APIKey:          cfg.OpenAIAPIKey,
		ExtractionModel: cfg.OpenAIExtractionModel,
		AnalysisModel:   cfg.OpenAIAnalysisModel,
		RequestTimeout:  time.Duration(cfg.OpenAITimeoutSeconds) * time.Second,
		RequestsPerMin:  cfg.OpenAIRequestsPerMin,
	}, executor)
	extractor := openai.NewExtractor(client, storage)
	analyzer := openai.NewAnalyzer(client)

	uploadUC := usecase.NewUploadDocumentUseCase(repo, storage, queue, log)
	processUC := usecase.NewProcessDocumentUseCase(repo, extractor, log)
	analyzeUC := usecase.NewAnalyzeErrorsUseCase(repo, errRepo, analyzer)
	reviewUC := usecase.NewReviewDocumentUseCase(repo, errRepo, cfg.ReviewerName)
	queryUC := usecase.NewQueryUseCase(repo, errRepo)
	exporter := export.NewService(repo, errRepo, log)

	return &App{
		Config: cfg,

		Queue:   queue,
		Repo:    repo,
		ErrRepo: errRepo,

		UploadUC:  uploadUC,
		ProcessUC: processUC,
		AnalyzeUC: analyzeUC,
		ReviewUC:  reviewUC,
		QueryUC:   queryUC,
		Exporter:  exporter,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

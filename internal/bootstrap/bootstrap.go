package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkravets/ragline/internal/config"
	"github.com/dkravets/ragline/internal/core/ports"
	"github.com/dkravets/ragline/internal/core/usecase"
	"github.com/dkravets/ragline/internal/infrastructure/chunking"
	"github.com/dkravets/ragline/internal/infrastructure/collaborator"
	extractorlocal "github.com/dkravets/ragline/internal/infrastructure/extractor/local"
	fulltextpg "github.com/dkravets/ragline/internal/infrastructure/fulltext/postgres"
	"github.com/dkravets/ragline/internal/infrastructure/queue/nats"
	"github.com/dkravets/ragline/internal/infrastructure/repository/postgres"
	"github.com/dkravets/ragline/internal/infrastructure/resilience"
	"github.com/dkravets/ragline/internal/infrastructure/storage/localfs"
	s3store "github.com/dkravets/ragline/internal/infrastructure/storage/s3"
	"github.com/dkravets/ragline/internal/infrastructure/vector/qdrant"
	"github.com/dkravets/ragline/internal/observability/logging"
)

// App wires configuration into the object graph shared by the API server and
// the ingestion worker. Each binary picks the ports it needs.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Repo      ports.DocumentRepository
	Rules     *postgres.RuleRepository
	Queue     ports.MessageQueue
	UploadUC  ports.DocumentUploader
	ProcessUC ports.DocumentProcessor
	Retriever ports.DocumentRetriever
	Writer    *usecase.ChunkWriter

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}
	rules := postgres.NewRuleRepository(db)

	fulltext := fulltextpg.NewIndex(db, cfg.FullTextLanguage)
	if err := fulltext.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure full-text schema: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: exec,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	timeout := time.Duration(cfg.CollaboratorTimeoutSeconds) * time.Second
	detector := collaborator.NewDetector(collaborator.New(cfg.DetectorURL, timeout, exec))
	embedClient := collaborator.New(cfg.EmbedderURL, timeout, exec)
	embedder := collaborator.NewEmbedder(embedClient)

	var extractor ports.ContentExtractor
	var chunker ports.ChunkEmbedder
	if cfg.LocalProcessing {
		extractor = extractorlocal.New()
		chunker = chunking.NewLocalChunker(chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap), embedder)
	} else {
		extractor = collaborator.NewExtractor(collaborator.New(cfg.ExtractorURL, timeout, exec))
		chunker = collaborator.NewChunkEmbedder(embedClient)
	}

	var summarizer ports.Summarizer
	if cfg.SummaryEnabled && cfg.SummarizerURL != "" {
		summarizer = collaborator.NewSummarizer(collaborator.New(cfg.SummarizerURL, timeout, exec))
	}

	vectors := qdrant.New(cfg.QdrantURL)
	tracker := usecase.NewLifecycleTracker(repo, logger)
	writer := usecase.NewChunkWriter(vectors, cfg.MaxParallelTasks, logger)

	uploadUC := usecase.NewUploadDocumentUseCase(repo, tracker, blobs, queue, cfg.BlobBucket)
	processUC := usecase.NewIngestPipeline(usecase.IngestPipelineDeps{
		Repo:       repo,
		Tracker:    tracker,
		Blobs:      blobs,
		Detector:   detector,
		Extractor:  extractor,
		Chunker:    chunker,
		Summarizer: summarizer,
		Writer:     writer,
		FullText:   fulltext,
		Settings:   rules,
		Logger:     logger,
	})
	retriever := usecase.NewRetrievalEngine(embedder, vectors, fulltext, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Repo:      repo,
		Rules:     rules,
		Queue:     queue,
		UploadUC:  uploadUC,
		ProcessUC: processUC,
		Retriever: retriever,
		Writer:    writer,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func newBlobStore(ctx context.Context, cfg config.Config) (ports.BlobStore, error) {
	switch cfg.BlobBackend {
	case "s3":
		return s3store.New(ctx, s3store.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
	case "localfs":
		return localfs.New(cfg.BlobPath)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

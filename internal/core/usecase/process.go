package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

const failedWriteTimeout = 5 * time.Second

// IngestPipeline drives a single document end-to-end: type detection,
// extraction, chunking+embedding, optional summarization, chunk fan-out.
// Every stage boundary is persisted as a status transition; the first
// unrecoverable stage parks the document in a terminal status. There is no
// internal retry of the whole pipeline and no rollback of partial progress.
type IngestPipeline struct {
	repo       ports.DocumentRepository
	tracker    ports.StatusTracker
	blobs      ports.BlobStore
	detector   ports.TypeDetector
	extractor  ports.ContentExtractor
	chunker    ports.ChunkEmbedder
	summarizer ports.Summarizer
	writer     *ChunkWriter
	fulltext   ports.FullTextIndex
	settings   ports.RuleSettingsStore
	logger     *slog.Logger
}

type IngestPipelineDeps struct {
	Repo       ports.DocumentRepository
	Tracker    ports.StatusTracker
	Blobs      ports.BlobStore
	Detector   ports.TypeDetector
	Extractor  ports.ContentExtractor
	Chunker    ports.ChunkEmbedder
	Summarizer ports.Summarizer
	Writer     *ChunkWriter
	FullText   ports.FullTextIndex
	Settings   ports.RuleSettingsStore
	Logger     *slog.Logger
}

func NewIngestPipeline(deps IngestPipelineDeps) *IngestPipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestPipeline{
		repo:       deps.Repo,
		tracker:    deps.Tracker,
		blobs:      deps.Blobs,
		detector:   deps.Detector,
		extractor:  deps.Extractor,
		chunker:    deps.Chunker,
		summarizer: deps.Summarizer,
		writer:     deps.Writer,
		fulltext:   deps.FullText,
		settings:   deps.Settings,
		logger:     logger,
	}
}

// ProcessByID runs the pipeline for one document. A missing document is a
// silent skip; any panic or unexpected error is converted into a single
// Failed transition carrying the error text.
func (p *IngestPipeline) ProcessByID(ctx context.Context, documentID string) (err error) {
	log := p.logger.With("document_id", documentID)

	doc, err := p.repo.GetByID(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			log.Warn("document not found, skipping pipeline run")
			return nil
		}
		return fmt.Errorf("fetch document by id: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
			p.markFailed(ctx, documentID, err.Error())
		}
	}()

	if err := p.run(ctx, log, doc); err != nil {
		if !domain.IsKind(err, errTerminalWritten) {
			p.markFailed(ctx, documentID, err.Error())
		}
		return err
	}
	return nil
}

// errTerminalWritten marks errors whose terminal status transition has
// already been persisted inside run.
var errTerminalWritten = fmt.Errorf("terminal status written")

func (p *IngestPipeline) run(ctx context.Context, log *slog.Logger, doc *domain.Document) error {
	if err := p.tracker.Transition(ctx, doc.ID, domain.StatusTypeDetecting, ""); err != nil {
		return err
	}

	data, err := p.blobs.Download(ctx, doc.Bucket, doc.BlobKey)
	if err != nil || len(data) == 0 {
		p.markFailed(ctx, doc.ID, domain.ErrEmptyDownload.Error())
		if err == nil {
			err = domain.ErrEmptyDownload
		} else {
			err = domain.WrapError(domain.ErrEmptyDownload, "download blob", err)
		}
		return fmt.Errorf("%w: %w", errTerminalWritten, err)
	}

	detected, err := p.detector.Detect(ctx, data, doc.Filename)
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}
	detected = strings.TrimSpace(detected)
	if detected == "" || strings.EqualFold(detected, "unknown") {
		msg := fmt.Sprintf("could not detect content type of %q", doc.Filename)
		if trErr := p.tracker.Transition(ctx, doc.ID, domain.StatusTypeDetectionFailed, msg); trErr != nil {
			return trErr
		}
		return fmt.Errorf("%w: %w", errTerminalWritten,
			domain.WrapError(domain.ErrTypeDetection, "detect content type", fmt.Errorf("detector returned %q", detected)))
	}
	doc.ContentType = detected

	if err := p.tracker.Transition(ctx, doc.ID, domain.StatusTypeDetectionSuccess,
		fmt.Sprintf("Detected content type: %s", detected)); err != nil {
		return err
	}
	if err := p.tracker.Transition(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return err
	}

	text, err := p.extractor.Extract(ctx, data, detected, doc.Filename)
	if err != nil {
		return fmt.Errorf("extract content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		p.markFailed(ctx, doc.ID, domain.ErrExtractionFailed.Error())
		return fmt.Errorf("%w: %w", errTerminalWritten, domain.ErrExtractionFailed)
	}

	if err := p.tracker.Transition(ctx, doc.ID, domain.StatusProcessingChunks, ""); err != nil {
		return err
	}

	chunks, err := p.chunker.ChunkAndEmbed(ctx, text)
	if err != nil {
		return fmt.Errorf("chunk and embed: %w", err)
	}
	if len(chunks) == 0 {
		p.markFailed(ctx, doc.ID, domain.ErrChunkingFailed.Error())
		return fmt.Errorf("%w: %w", errTerminalWritten, domain.ErrChunkingFailed)
	}

	p.summarize(ctx, log, doc, text)

	if err := p.tracker.Transition(ctx, doc.ID, domain.StatusStoringEmbeddings,
		fmt.Sprintf("Storing embeddings for %d chunks.", len(chunks))); err != nil {
		return err
	}

	collectionID, repoSettings, err := p.resolveCollection(ctx, doc)
	if err != nil {
		return err
	}
	if collectionID == "" {
		p.markFailed(ctx, doc.ID, domain.ErrNoCollection.Error())
		return fmt.Errorf("%w: %w", errTerminalWritten, domain.ErrNoCollection)
	}

	maxParallel := 0
	if repoSettings != nil {
		maxParallel = repoSettings.MaxParallel()
	}
	stored, recordIDs := p.writer.StoreAll(ctx, collectionID, doc, chunks, maxParallel)
	if len(recordIDs) > 0 {
		if err := p.repo.SetChunkRecordIDs(ctx, doc.ID, recordIDs); err != nil {
			log.Warn("persisting chunk record ids failed", "error", err)
		}
	}

	p.mirrorFullText(ctx, log, collectionID, repoSettings, doc, chunks)

	return p.tracker.Transition(ctx, doc.ID, domain.StatusCompleted,
		fmt.Sprintf("Ingestion complete. %d chunks stored.", stored))
}

func (p *IngestPipeline) summarize(ctx context.Context, log *slog.Logger, doc *domain.Document, text string) {
	if p.summarizer == nil {
		return
	}
	if err := p.tracker.Transition(ctx, doc.ID, domain.StatusSummarizing, ""); err != nil {
		log.Warn("summarizing transition rejected", "error", err)
		return
	}
	summary, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		log.Warn("summarization failed", "error", err)
		return
	}
	if summary == "" {
		return
	}
	doc.Summary = summary
	if err := p.repo.SaveSummary(ctx, doc.ID, summary); err != nil {
		log.Warn("saving summary failed", "error", err)
	}
}

// resolveCollection prefers the collection pinned on the document itself and
// falls back to the owning ingestion rule's repository settings.
func (p *IngestPipeline) resolveCollection(ctx context.Context, doc *domain.Document) (string, domain.RepositorySettings, error) {
	if doc.CollectionID != "" {
		return doc.CollectionID, nil, nil
	}
	if doc.RuleID == "" || p.settings == nil {
		return "", nil, nil
	}
	settings, err := p.settings.GetRepositorySettings(ctx, doc.RuleID)
	if err != nil {
		return "", nil, fmt.Errorf("resolve repository settings: %w", err)
	}
	return settings.Collection(), settings, nil
}

// mirrorFullText copies chunk text into the lexical index for hybrid rules.
// Best effort: a failed mirror degrades hybrid ranking, never the pipeline.
func (p *IngestPipeline) mirrorFullText(ctx context.Context, log *slog.Logger, collectionID string, settings domain.RepositorySettings, doc *domain.Document, chunks []domain.Chunk) {
	if p.fulltext == nil {
		return
	}
	if settings == nil || settings.Kind() != "hybrid" {
		return
	}
	if err := p.fulltext.IndexChunks(ctx, collectionID, doc, chunks); err != nil {
		log.Warn("full-text mirror failed", "collection_id", collectionID, "error", err)
	}
}

// markFailed writes the Failed terminal status on a context detached from the
// pipeline's cancellation, so a cancelled run can still be parked in Failed
// instead of a dangling transient status.
func (p *IngestPipeline) markFailed(ctx context.Context, documentID, message string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failedWriteTimeout)
	defer cancel()
	if err := p.tracker.Transition(writeCtx, documentID, domain.StatusFailed, message); err != nil {
		p.logger.Error("failed status write lost", "document_id", documentID, "error", err)
	}
}

package ports

import (
	"context"
	"io"

	"github.com/dkravets/ragline/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, message string) error
	SetChunkRecordIDs(ctx context.Context, id string, recordIDs []string) error
	SaveSummary(ctx context.Context, id string, summary string) error
}

// StatusTracker applies validated lifecycle transitions.
type StatusTracker interface {
	Transition(ctx context.Context, documentID string, next domain.DocumentStatus, message string) error
}

// BlobStore stores and serves raw document bytes.
type BlobStore interface {
	Upload(ctx context.Context, bucket, key string, data io.Reader, size int64) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

// TypeDetector resolves the content type of raw bytes.
type TypeDetector interface {
	Detect(ctx context.Context, data []byte, filename string) (string, error)
}

// ContentExtractor turns raw bytes of a known type into plain text.
type ContentExtractor interface {
	Extract(ctx context.Context, data []byte, contentType, filename string) (string, error)
}

// ChunkEmbedder splits text into chunks and embeds each of them.
type ChunkEmbedder interface {
	ChunkAndEmbed(ctx context.Context, text string) ([]domain.Chunk, error)
}

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Summarizer produces a short summary of extracted text. Optional: the
// pipeline skips the summarizing stage when none is configured.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// VectorStore writes single chunk records and performs semantic search.
type VectorStore interface {
	Store(ctx context.Context, collectionID string, doc *domain.Document, chunk domain.Chunk) (string, error)
	Search(ctx context.Context, collectionID string, vector []float32, topK int) ([]domain.RetrievedChunk, error)
}

// FullTextIndex mirrors chunk text for lexical ranking.
type FullTextIndex interface {
	IndexChunks(ctx context.Context, collectionID string, doc *domain.Document, chunks []domain.Chunk) error
	Search(ctx context.Context, collectionID, query string, topK int, opts domain.SearchOptions) ([]domain.RetrievedChunk, error)
}

// RuleSettingsStore reads the repository settings of an ingestion rule.
type RuleSettingsStore interface {
	GetRepositorySettings(ctx context.Context, ruleID string) (domain.RepositorySettings, error)
}

// MessageQueue publishes/consumes document processing events.
type MessageQueue interface {
	PublishDocumentQueued(ctx context.Context, documentID string) error
	SubscribeDocumentQueued(ctx context.Context, handler func(context.Context, string) error) error
}

package ports

import (
	"context"
	"encoding/json"
	"io"

	"github.com/dkravets/ragline/internal/core/domain"
)

// UploadRequest carries everything needed to register one document.
type UploadRequest struct {
	TenantID     string
	Filename     string
	Size         int64
	RuleID       string
	CollectionID string
	Labels       json.RawMessage
	Body         io.Reader
}

// DocumentUploader is the inbound contract for document upload orchestration.
type DocumentUploader interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)
}

// DocumentProcessor drives one document through the ingestion pipeline.
// Completion is observable only through the document's status.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentRetriever answers retrieval queries against an ingested collection.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, collectionID, query string, topK int, scoreThreshold float64, opts domain.SearchOptions) ([]string, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

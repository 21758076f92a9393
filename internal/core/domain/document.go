package domain

import (
	"encoding/json"
	"time"
)

type DocumentStatus string

const (
	StatusPending              DocumentStatus = "pending"
	StatusUploading            DocumentStatus = "uploading"
	StatusUploaded             DocumentStatus = "uploaded"
	StatusTypeDetecting        DocumentStatus = "type_detecting"
	StatusTypeDetectionSuccess DocumentStatus = "type_detection_success"
	StatusTypeDetectionFailed  DocumentStatus = "type_detection_failed"
	StatusProcessing           DocumentStatus = "processing"
	StatusProcessingChunks     DocumentStatus = "processing_chunks"
	StatusSummarizing          DocumentStatus = "summarizing"
	StatusStoringEmbeddings    DocumentStatus = "storing_embeddings"
	StatusCompleted            DocumentStatus = "completed"
	StatusFailed               DocumentStatus = "failed"
)

// Document is the unit of ingestion: one uploaded or crawled object with a
// lifecycle status. Labels are opaque to the pipeline and stored verbatim.
type Document struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	Filename       string          `json:"filename"`
	Bucket         string          `json:"bucket"`
	BlobKey        string          `json:"blob_key"`
	Size           int64           `json:"size"`
	ContentType    string          `json:"content_type,omitempty"`
	Status         DocumentStatus  `json:"status"`
	StatusMessage  string          `json:"status_message,omitempty"`
	RuleID         string          `json:"rule_id,omitempty"`
	CollectionID   string          `json:"collection_id,omitempty"`
	Labels         json.RawMessage `json:"labels,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	ChunkRecordIDs []string        `json:"chunk_record_ids,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Chunk is a slice of extracted text paired with its embedding. Chunks live
// only for the duration of one pipeline run; the vector store record id is
// the only thing that survives, on Document.ChunkRecordIDs.
type Chunk struct {
	Index     int       `json:"index"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embeddings"`
}

package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// UploadDocumentUseCase registers a new document, stores its raw bytes and
// queues it for asynchronous processing.
type UploadDocumentUseCase struct {
	repo    ports.DocumentRepository
	tracker ports.StatusTracker
	blobs   ports.BlobStore
	queue   ports.MessageQueue
	bucket  string
}

func NewUploadDocumentUseCase(
	repo ports.DocumentRepository,
	tracker ports.StatusTracker,
	blobs ports.BlobStore,
	queue ports.MessageQueue,
	bucket string,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{
		repo:    repo,
		tracker: tracker,
		blobs:   blobs,
		queue:   queue,
		bucket:  bucket,
	}
}

func (uc *UploadDocumentUseCase) Upload(ctx context.Context, req ports.UploadRequest) (*domain.Document, error) {
	if req.Size < 0 {
		return nil, fmt.Errorf("%w: negative document size %d", domain.ErrInvalidInput, req.Size)
	}
	if req.Body == nil {
		return nil, fmt.Errorf("%w: upload body is nil", domain.ErrInvalidInput)
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	doc := &domain.Document{
		ID:           id,
		TenantID:     req.TenantID,
		Filename:     req.Filename,
		Bucket:       uc.bucket,
		BlobKey:      key,
		Size:         req.Size,
		Status:       domain.StatusPending,
		RuleID:       req.RuleID,
		CollectionID: req.CollectionID,
		Labels:       req.Labels,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.tracker.Transition(ctx, doc.ID, domain.StatusUploading, ""); err != nil {
		return nil, err
	}
	if err := uc.blobs.Upload(ctx, uc.bucket, key, req.Body, req.Size); err != nil {
		uploadErr := fmt.Errorf("store blob: %w", err)
		if trErr := uc.tracker.Transition(ctx, doc.ID, domain.StatusFailed, uploadErr.Error()); trErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %w", uploadErr, trErr)
		}
		return nil, uploadErr
	}
	if err := uc.tracker.Transition(ctx, doc.ID, domain.StatusUploaded, ""); err != nil {
		return nil, err
	}

	if err := uc.queue.PublishDocumentQueued(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish processing event: %w", err)
	}

	doc.Status = domain.StatusUploaded
	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// LifecycleTracker validates and applies document status transitions. A write
// that hits a concurrently deleted document is a logged no-op so that an
// in-flight pipeline never crashes on deletion races.
type LifecycleTracker struct {
	repo   ports.DocumentRepository
	logger *slog.Logger
}

func NewLifecycleTracker(repo ports.DocumentRepository, logger *slog.Logger) *LifecycleTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleTracker{repo: repo, logger: logger}
}

func (t *LifecycleTracker) Transition(ctx context.Context, documentID string, next domain.DocumentStatus, message string) error {
	doc, err := t.repo.GetByID(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			t.logger.Warn("status transition skipped, document gone",
				"document_id", documentID, "next_status", string(next))
			return nil
		}
		return fmt.Errorf("load document for transition: %w", err)
	}

	if !domain.CanTransition(doc.Status, next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, doc.Status, next)
	}

	if err := t.repo.UpdateStatus(ctx, documentID, next, message); err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			t.logger.Warn("status write affected no rows, document gone",
				"document_id", documentID, "next_status", string(next))
			return nil
		}
		return fmt.Errorf("write status %s: %w", next, err)
	}
	return nil
}

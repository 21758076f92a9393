package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// ChunkWriter fans one vector-store write out per chunk. Individual failures
// are logged and counted, never raised: ingestion stays "done" even with
// partial embedding loss.
type ChunkWriter struct {
	vectors         ports.VectorStore
	defaultParallel int
	logger          *slog.Logger
	failureHook     func()
}

func NewChunkWriter(vectors ports.VectorStore, maxParallel int, logger *slog.Logger) *ChunkWriter {
	if maxParallel < 1 {
		maxParallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkWriter{
		vectors:         vectors,
		defaultParallel: maxParallel,
		logger:          logger,
	}
}

// SetFailureHook registers a callback invoked once per failed chunk write.
func (w *ChunkWriter) SetFailureHook(hook func()) {
	w.failureHook = hook
}

// StoreAll persists every chunk through a bounded worker pool and returns the
// stored count plus the record ids of successful writes in chunk order.
// maxParallel <= 0 falls back to the configured default; a pool of one keeps
// the writes strictly sequential.
func (w *ChunkWriter) StoreAll(ctx context.Context, collectionID string, doc *domain.Document, chunks []domain.Chunk, maxParallel int) (int, []string) {
	if len(chunks) == 0 {
		return 0, nil
	}

	size := maxParallel
	if size < 1 {
		size = w.defaultParallel
	}
	if size > len(chunks) {
		size = len(chunks)
	}

	results := make([]string, len(chunks))
	if size == 1 {
		for i, chunk := range chunks {
			if id, ok := w.Store(ctx, collectionID, doc, chunk); ok {
				results[i] = id
			}
		}
		return collectRecordIDs(results)
	}

	pool, err := ants.NewPool(size)
	if err != nil {
		w.logger.Warn("worker pool unavailable, storing sequentially", "error", err)
		for i, chunk := range chunks {
			if id, ok := w.Store(ctx, collectionID, doc, chunk); ok {
				results[i] = id
			}
		}
		return collectRecordIDs(results)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			if id, ok := w.Store(ctx, collectionID, doc, chunk); ok {
				results[i] = id
			}
		}); submitErr != nil {
			wg.Done()
			w.logger.Warn("chunk store submit rejected",
				"document_id", doc.ID, "chunk_index", chunk.Index, "error", submitErr)
		}
	}
	wg.Wait()

	return collectRecordIDs(results)
}

// Store writes a single chunk and reports success. Failures are logged here
// and surface only in the stored/total accounting.
func (w *ChunkWriter) Store(ctx context.Context, collectionID string, doc *domain.Document, chunk domain.Chunk) (string, bool) {
	recordID, err := w.vectors.Store(ctx, collectionID, doc, chunk)
	if err != nil {
		w.logger.Warn("chunk store failed",
			"document_id", doc.ID, "chunk_index", chunk.Index, "collection_id", collectionID, "error", err)
		if w.failureHook != nil {
			w.failureHook()
		}
		return "", false
	}
	return recordID, true
}

func collectRecordIDs(results []string) (int, []string) {
	stored := 0
	ids := make([]string, 0, len(results))
	for _, id := range results {
		if id != "" {
			stored++
			ids = append(ids, id)
		}
	}
	return stored, ids
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// RetrievalEngine answers a natural-language query with the most relevant
// chunk contents of one collection, ranked by vector similarity, full-text
// relevance, or a weighted fusion of both.
type RetrievalEngine struct {
	embedder ports.QueryEmbedder
	vectors  ports.VectorStore
	fulltext ports.FullTextIndex
	logger   *slog.Logger
}

func NewRetrievalEngine(embedder ports.QueryEmbedder, vectors ports.VectorStore, fulltext ports.FullTextIndex, logger *slog.Logger) *RetrievalEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalEngine{
		embedder: embedder,
		vectors:  vectors,
		fulltext: fulltext,
		logger:   logger,
	}
}

// Retrieve validates caller input strictly: out-of-range parameters are
// rejected rather than clamped so misconfiguration cannot hide behind
// silently corrected values.
func (e *RetrievalEngine) Retrieve(ctx context.Context, collectionID, query string, topK int, scoreThreshold float64, opts domain.SearchOptions) ([]string, error) {
	if strings.TrimSpace(collectionID) == "" {
		return nil, fmt.Errorf("%w: collection id is empty", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query text is empty", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if scoreThreshold < 0 || scoreThreshold > 1 {
		return nil, fmt.Errorf("%w: score threshold %v outside [0,1]", domain.ErrInvalidInput, scoreThreshold)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if (opts.Mode == domain.SearchModeFullText || opts.Mode == domain.SearchModeHybrid) && e.fulltext == nil {
		return nil, fmt.Errorf("%w: full-text search is not configured", domain.ErrInvalidInput)
	}

	// Pure lexical mode never touches the embedder.
	if opts.Mode == domain.SearchModeFullText {
		hits, err := e.fulltext.Search(ctx, collectionID, query, topK, opts)
		if err != nil {
			return nil, fmt.Errorf("full-text search: %w", err)
		}
		return chunkContents(rankFullText(hits, opts.MinTextScore)), nil
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, returning empty result", "error", err)
		return []string{}, nil
	}
	if len(vector) == 0 {
		e.logger.Warn("query embedding empty, returning empty result")
		return []string{}, nil
	}

	hits, err := e.vectors.Search(ctx, collectionID, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if opts.Mode == domain.SearchModeVector {
		return chunkContents(rankVector(hits, scoreThreshold)), nil
	}

	textHits, err := e.fulltext.Search(ctx, collectionID, query, topK, opts)
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}
	fused := fuseHybrid(hits, textHits, opts.TextWeight)
	return chunkContents(rankHybrid(fused, scoreThreshold, opts.MinTextScore)), nil
}

func chunkContents(chunks []domain.RetrievedChunk) []string {
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, chunk.Content)
	}
	return out
}

package chunking

import (
	"context"
	"fmt"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// BatchEmbedder embeds a batch of texts in one call.
type BatchEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LocalChunker is the in-process ChunkEmbedder: it splits text locally and
// embeds the pieces through the embedding service.
type LocalChunker struct {
	splitter *Splitter
	embedder BatchEmbedder
}

var _ ports.ChunkEmbedder = (*LocalChunker)(nil)

func NewLocalChunker(splitter *Splitter, embedder BatchEmbedder) *LocalChunker {
	return &LocalChunker{splitter: splitter, embedder: embedder}
}

func (c *LocalChunker) ChunkAndEmbed(ctx context.Context, text string) ([]domain.Chunk, error) {
	pieces := c.splitter.Split(text)
	if len(pieces) == 0 {
		return nil, nil
	}

	vectors, err := c.embedder.Embed(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(pieces) {
		return nil, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(pieces), len(vectors))
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			Index:     i,
			Content:   piece,
			Embedding: vectors[i],
		})
	}
	return chunks, nil
}

package collaborator

import (
	"context"
	"fmt"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// ChunkEmbedder calls the chunking+embedding service, which splits a text and
// returns each chunk with its embedding in one round trip.
type ChunkEmbedder struct {
	client *Client
}

var _ ports.ChunkEmbedder = (*ChunkEmbedder)(nil)

func NewChunkEmbedder(client *Client) *ChunkEmbedder {
	return &ChunkEmbedder{client: client}
}

func (c *ChunkEmbedder) ChunkAndEmbed(ctx context.Context, text string) ([]domain.Chunk, error) {
	request := map[string]any{"text": text}
	var response struct {
		Chunks []domain.Chunk `json:"chunks"`
	}
	err := c.client.execute(ctx, "chunk_embed", func(ctx context.Context) error {
		return c.client.postJSON(ctx, "/v1/chunks", request, &response, "chunk_embed")
	})
	if err != nil {
		return nil, err
	}
	return response.Chunks, nil
}

// Embedder calls the embedding service directly, without chunking. It backs
// query embedding for retrieval and the local chunker fallback.
type Embedder struct {
	client *Client
}

var _ ports.QueryEmbedder = (*Embedder)(nil)

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{"input": texts}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.execute(ctx, "embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/v1/embeddings", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

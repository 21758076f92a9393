package collaborator

import (
	"context"

	"github.com/dkravets/ragline/internal/core/ports"
)

// Extractor calls the content extraction service with the raw bytes and the
// detected content type.
type Extractor struct {
	client *Client
}

var _ ports.ContentExtractor = (*Extractor)(nil)

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	var response struct {
		Content string `json:"content"`
	}
	fields := map[string]string{"content_type": contentType}
	err := e.client.execute(ctx, "extract", func(ctx context.Context) error {
		return e.client.postFile(ctx, "/v1/extract", data, filename, fields, &response, "extract")
	})
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

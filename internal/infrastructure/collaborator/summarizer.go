package collaborator

import (
	"context"
	"strings"

	"github.com/dkravets/ragline/internal/core/ports"
)

type Summarizer struct {
	client *Client
}

var _ ports.Summarizer = (*Summarizer)(nil)

func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	request := map[string]any{"text": text}
	var response struct {
		Summary string `json:"summary"`
	}
	err := s.client.execute(ctx, "summarize", func(ctx context.Context) error {
		return s.client.postJSON(ctx, "/v1/summarize", request, &response, "summarize")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Summary), nil
}

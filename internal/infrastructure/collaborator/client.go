// Package collaborator holds the HTTP clients for the processing services the
// ingestion pipeline delegates to: type detection, content extraction,
// chunking+embedding and summarization.
package collaborator

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dkravets/ragline/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL string, timeout time.Duration, exec *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		exec:       exec,
	}
}

// execute routes the call through the resilience executor when one is
// configured; otherwise the call runs bare.
func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.exec == nil {
		return wrapTemporaryIfNeeded(operation, fn(ctx))
	}
	err := c.exec.Execute(ctx, operation, fn, classifyCollaboratorError)
	return wrapTemporaryIfNeeded(operation, err)
}

package collaborator

import (
	"context"
	"strings"

	"github.com/dkravets/ragline/internal/core/ports"
)

// Detector calls the type detection service. The service answers "unknown"
// for formats it cannot identify; that value is passed through untouched so
// the pipeline can park the document in its terminal detection status.
type Detector struct {
	client *Client
}

var _ ports.TypeDetector = (*Detector)(nil)

func NewDetector(client *Client) *Detector {
	return &Detector{client: client}
}

func (d *Detector) Detect(ctx context.Context, data []byte, filename string) (string, error) {
	var response struct {
		Type string `json:"type"`
	}
	err := d.client.execute(ctx, "detect", func(ctx context.Context) error {
		return d.client.postFile(ctx, "/v1/detect", data, filename, nil, &response, "detect")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Type), nil
}

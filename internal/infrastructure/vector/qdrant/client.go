package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// Client talks to the qdrant HTTP API. Collections are created lazily on the
// first write that targets them.
type Client struct {
	baseURL    string
	httpClient *http.Client

	ensureMu sync.Mutex
	ensured  map[string]int
}

var _ ports.VectorStore = (*Client)(nil)

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		ensured:    make(map[string]int),
	}
}

// Store upserts a single chunk and returns the generated point id.
func (c *Client) Store(ctx context.Context, collectionID string, doc *domain.Document, chunk domain.Chunk) (string, error) {
	if len(chunk.Embedding) == 0 {
		return "", fmt.Errorf("chunk %d has no embedding", chunk.Index)
	}
	if err := c.ensureCollection(ctx, collectionID, len(chunk.Embedding)); err != nil {
		return "", err
	}

	recordID := uuid.NewString()
	reqBody := map[string]any{
		"points": []map[string]any{{
			"id":     recordID,
			"vector": chunk.Embedding,
			"payload": map[string]any{
				"document_id": doc.ID,
				"tenant_id":   doc.TenantID,
				"filename":    doc.Filename,
				"chunk_index": chunk.Index,
				"content":     chunk.Content,
			},
		}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", statusError("qdrant upsert", resp)
	}
	return recordID, nil
}

func (c *Client) Search(ctx context.Context, collectionID string, queryVector []float32, topK int) ([]domain.RetrievedChunk, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, statusError("qdrant search", resp)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedChunk{
			DocumentID:  getStringPayload(r.Payload, "document_id"),
			ChunkIndex:  getIntPayload(r.Payload, "chunk_index"),
			Content:     getStringPayload(r.Payload, "content"),
			VectorScore: r.Score,
		})
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, collectionID string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensured[collectionID]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if the collection already exists.
	if resp.StatusCode == http.StatusConflict {
		c.markEnsured(collectionID, vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		return statusError("qdrant ensure collection", resp)
	}
	c.markEnsured(collectionID, vectorSize)
	return nil
}

func (c *Client) markEnsured(collectionID string, vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensured[collectionID] = vectorSize
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("%s status: %s: %s", operation, resp.Status, msg)
	}
	return fmt.Errorf("%s status: %s", operation, resp.Status)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int(f)
}

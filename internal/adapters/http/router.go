package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkravets/ragline/internal/config"
	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
	"github.com/dkravets/ragline/internal/observability/metrics"
)

const maxUploadBytes = 256 << 20

// RuleStore manages ingestion rules and their repository settings payloads.
type RuleStore interface {
	UpsertRule(ctx context.Context, ruleID string, repositorySettings []byte) error
	DeleteRule(ctx context.Context, ruleID string) error
}

type Router struct {
	cfg       config.Config
	uploader  ports.DocumentUploader
	retriever ports.DocumentRetriever
	docs      ports.DocumentReader
	rules     RuleStore
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	uploader ports.DocumentUploader,
	retriever ports.DocumentRetriever,
	docs ports.DocumentReader,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		uploader:  uploader,
		retriever: retriever,
		docs:      docs,
		metrics:   serverMetrics,
	}
}

// WithRuleStore enables the /v1/rules endpoints.
func (rt *Router) WithRuleStore(rules RuleStore) *Router {
	rt.rules = rules
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	if rt.rules != nil {
		mux.HandleFunc("/v1/rules/", rt.handleRule)
	}
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	req := ports.UploadRequest{
		TenantID:     r.FormValue("tenant_id"),
		Filename:     fileHeader.Filename,
		Size:         fileHeader.Size,
		RuleID:       r.FormValue("rule_id"),
		CollectionID: r.FormValue("collection_id"),
		Body:         file,
	}
	if labels := r.FormValue("labels"); labels != "" {
		if !json.Valid([]byte(labels)) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "labels must be a JSON object"})
			return
		}
		req.Labels = json.RawMessage(labels)
	}

	doc, err := rt.uploader.Upload(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type retrieveRequest struct {
	CollectionID   string              `json:"collection_id"`
	Query          string              `json:"query"`
	TopK           int                 `json:"top_k"`
	ScoreThreshold *float64            `json:"score_threshold"`
	Mode           domain.SearchMode   `json:"mode"`
	TextWeight     *float64            `json:"text_weight"`
	RankFunction   domain.RankFunction `json:"rank_function"`
	Language       string              `json:"language"`
	Normalization  *int                `json:"normalization"`
	MinTextScore   *float64            `json:"min_text_score"`
}

type retrieveResponse struct {
	Results []string `json:"results"`
	Count   int      `json:"count"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	opts, topK, threshold := rt.searchDefaults(req)

	start := time.Now()
	results, err := rt.retriever.Retrieve(r.Context(), req.CollectionID, req.Query, topK, threshold, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRetrieval("api", string(opts.Mode), len(results), time.Since(start))
	}

	writeJSON(w, http.StatusOK, retrieveResponse{Results: results, Count: len(results)})
}

// searchDefaults fills unset request fields from configuration so callers only
// need to send what they want to override.
func (rt *Router) searchDefaults(req retrieveRequest) (domain.SearchOptions, int, float64) {
	opts := domain.SearchOptions{
		Mode:         req.Mode,
		RankFunction: req.RankFunction,
		Language:     req.Language,
		MinTextScore: req.MinTextScore,
	}
	if opts.Mode == "" {
		opts.Mode = domain.SearchModeVector
	}
	if req.TextWeight != nil {
		opts.TextWeight = *req.TextWeight
	} else {
		opts.TextWeight = rt.cfg.RetrievalTextWeight
	}
	if opts.RankFunction == "" {
		opts.RankFunction = domain.RankFunction(rt.cfg.FullTextRankFunction)
	}
	if opts.Language == "" {
		opts.Language = rt.cfg.FullTextLanguage
	}
	if req.Normalization != nil {
		opts.Normalization = *req.Normalization
	} else {
		opts.Normalization = rt.cfg.FullTextNormalization
	}

	topK := req.TopK
	if topK == 0 {
		topK = rt.cfg.RetrievalTopK
	}
	threshold := rt.cfg.RetrievalScoreThreshold
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}
	return opts, topK, threshold
}

func (rt *Router) handleRule(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/rules/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rule id is required"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read request body"})
			return
		}
		if err := rt.rules.UpsertRule(r.Context(), id, body); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"rule_id": id})
	case http.MethodDelete:
		if err := rt.rules.DeleteRule(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"rule_id": id})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

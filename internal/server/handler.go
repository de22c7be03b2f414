// Package server exposes the search and ingestion HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dsipek/nj-search-engine/internal/builder"
	"github.com/Dsipek/nj-search-engine/internal/cache"
	"github.com/Dsipek/nj-search-engine/internal/scorer"
	apperrors "github.com/Dsipek/nj-search-engine/pkg/errors"
	"github.com/Dsipek/nj-search-engine/pkg/logger"
	"github.com/Dsipek/nj-search-engine/pkg/metrics"
)

// SearchRequest is the body of a search call.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse holds the full ranking for a query.
type SearchResponse struct {
	Results []scorer.RankedDocument `json:"results"`
}

// AddDocumentResponse reports a successful ingestion.
type AddDocumentResponse struct {
	Message    string `json:"message"`
	DocumentID int    `json:"document_id"`
}

// Handler serves the search and ingestion endpoints.
type Handler struct {
	scorer         *scorer.Scorer
	builder        *builder.Builder
	resultCache    *cache.ResultCache
	metrics        *metrics.Metrics
	maxUploadBytes int64
	logger         *slog.Logger
}

// New creates a Handler. The metrics argument may be nil, in which case no
// instrumentation is recorded.
func New(sc *scorer.Scorer, b *builder.Builder, rc *cache.ResultCache, m *metrics.Metrics, maxUploadBytes int64) *Handler {
	return &Handler{
		scorer:         sc,
		builder:        b,
		resultCache:    rc,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
		logger:         slog.Default().With("component", "http-handler"),
	}
}

// Search scores the submitted query against every known document and returns
// the full ranking, best match first. An empty query is valid and yields an
// all-zero ranking in document-ID order.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	results, cacheHit, err := h.scorer.Search(ctx, req.Query)
	if err != nil {
		log.Error("search failed", "query", req.Query, "error", err)
		if h.metrics != nil {
			h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}

	log.Info("search completed",
		"query", req.Query,
		"documents", len(results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	if h.metrics != nil {
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(cacheStatus).Inc()
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// AddDocument ingests one plain-text document from a multipart upload and
// returns the newly assigned document ID. Non-.txt or non-UTF-8 uploads are
// rejected before any index state is touched.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		log.Error("reading upload failed", "error", err)
		h.writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	docID, err := h.builder.AddDocument(header.Filename, content)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("document ingestion failed",
			"filename", header.Filename,
			"status_code", statusCode,
			"error", err,
		)
		if h.metrics != nil && errors.Is(err, apperrors.ErrPersistence) {
			h.metrics.IndexPersistsTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, statusCode, err.Error())
		return
	}

	log.Info("document ingested", "doc_id", docID, "filename", header.Filename)
	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Inc()
		h.metrics.IndexedDocuments.Set(float64(docID + 1))
		h.metrics.IndexPersistsTotal.WithLabelValues("success").Inc()
	}

	h.writeJSON(w, http.StatusCreated, AddDocumentResponse{
		Message:    "Document added successfully",
		DocumentID: docID,
	})
}

// CacheStats reports result-cache hit/miss counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses := h.resultCache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate drops every cached score vector.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.resultCache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "invalidated",
		"keys_deleted": deleted,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

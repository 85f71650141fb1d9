// Package handler exposes the search engine over HTTP: document search,
// sentence search with context windows, term highlighting, document content
// lookup, and index statistics.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/newa-nlp/newasearch/internal/analytics"
	"github.com/newa-nlp/newasearch/internal/index"
	"github.com/newa-nlp/newasearch/internal/search"
	"github.com/newa-nlp/newasearch/internal/searcher/cache"
	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
	"github.com/newa-nlp/newasearch/pkg/metrics"
)

// Handler serves the search API. Cache, collector, and metrics are optional.
type Handler struct {
	engine       *search.Engine
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(engine *search.Engine, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		engine:       engine,
		cache:        queryCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register wires all API routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search/documents", h.SearchDocuments)
	mux.HandleFunc("GET /api/v1/search/sentences", h.SearchSentences)
	mux.HandleFunc("GET /api/v1/search/highlight", h.SearchWithHighlight)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.DocumentContent)
	mux.HandleFunc("GET /api/v1/stats", h.IndexStats)
}

type documentsResponse struct {
	Query     string   `json:"query"`
	Operation string   `json:"operation"`
	Total     int      `json:"total"`
	Documents []string `json:"documents"`
}

type sentencesResponse struct {
	Query     string                  `json:"query"`
	Operation string                  `json:"operation"`
	Total     int                     `json:"total"`
	Results   []search.SentenceResult `json:"results"`
}

type highlightResponse struct {
	Query     string                     `json:"query"`
	Operation string                     `json:"operation"`
	Total     int                        `json:"total"`
	Results   []search.HighlightedResult `json:"results"`
}

type contentResponse struct {
	Document string `json:"document"`
	Content  string `json:"content"`
}

// queryParams extracts and validates the common q/op/limit parameters.
func (h *Handler) queryParams(r *http.Request) (query string, op index.Op, limit int, err error) {
	query = r.URL.Query().Get("q")
	if query == "" {
		return "", 0, 0, apperrors.New(apperrors.ErrInvalidArgument, "query parameter 'q' is required")
	}
	opName := r.URL.Query().Get("op")
	if opName == "" {
		opName = "AND"
	}
	op, err = index.ParseOp(opName)
	if err != nil {
		return "", 0, 0, err
	}
	limit = h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, perr := strconv.Atoi(limitStr)
		if perr != nil || parsed < 1 {
			return "", 0, 0, apperrors.New(apperrors.ErrInvalidArgument, "limit must be a positive integer")
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}
	return query, op, limit, nil
}

func (h *Handler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	h.serveSearch(w, r, "documents", func(query string, op index.Op, limit int) (any, int, error) {
		docs, err := h.engine.SearchDocuments(query, op, limit)
		if err != nil {
			return nil, 0, err
		}
		return documentsResponse{
			Query:     query,
			Operation: op.String(),
			Total:     len(docs),
			Documents: docs,
		}, len(docs), nil
	})
}

func (h *Handler) SearchSentences(w http.ResponseWriter, r *http.Request) {
	h.serveSearch(w, r, "sentences", func(query string, op index.Op, limit int) (any, int, error) {
		results, err := h.engine.SearchSentences(r.Context(), query, op, limit)
		if err != nil {
			return nil, 0, err
		}
		return sentencesResponse{
			Query:     query,
			Operation: op.String(),
			Total:     len(results),
			Results:   results,
		}, len(results), nil
	})
}

func (h *Handler) SearchWithHighlight(w http.ResponseWriter, r *http.Request) {
	h.serveSearch(w, r, "highlight", func(query string, op index.Op, limit int) (any, int, error) {
		results, err := h.engine.SearchWithHighlight(r.Context(), query, op, limit)
		if err != nil {
			return nil, 0, err
		}
		return highlightResponse{
			Query:     query,
			Operation: op.String(),
			Total:     len(results),
			Results:   results,
		}, len(results), nil
	})
}

// serveSearch runs one search kind through the cache (when configured),
// records metrics and analytics, and writes the JSON response.
func (h *Handler) serveSearch(w http.ResponseWriter, r *http.Request, kind string, run func(query string, op index.Op, limit int) (any, int, error)) {
	start := time.Now()
	query, op, limit, err := h.queryParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	compute := func() ([]byte, error) {
		resp, n, err := run(query, op, limit)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}
		h.track(kind, query, op, n, time.Since(start), false)
		return data, nil
	}

	var payload []byte
	cacheHit := false
	if h.cache != nil {
		payload, cacheHit, err = h.cache.GetOrCompute(r.Context(), kind, query, op.String(), limit, compute)
	} else {
		payload, err = compute()
	}
	if err != nil {
		h.observe(kind, "error", 0, time.Since(start))
		h.writeError(w, err)
		return
	}
	if h.cache != nil && h.metrics != nil {
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	if cacheHit {
		h.track(kind, query, op, -1, time.Since(start), true)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (h *Handler) DocumentContent(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	content, err := h.engine.DocumentContent(r.Context(), docID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, contentResponse{Document: docID, Content: content})
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.IndexStats())
}

// track records metrics and publishes an analytics event for one query.
// returned < 0 means the result count is unknown (cache hit).
func (h *Handler) track(kind, query string, op index.Op, returned int, latency time.Duration, cacheHit bool) {
	resultType := "hit"
	eventType := analytics.EventSearch
	switch {
	case cacheHit:
		eventType = analytics.EventCacheHit
	case returned == 0:
		resultType = "zero_result"
		eventType = analytics.EventZeroResult
	}
	h.observe(kind, resultType, returned, latency)
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:      eventType,
			Kind:      kind,
			Query:     query,
			Operation: op.String(),
			Returned:  returned,
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
		})
	}
}

func (h *Handler) observe(kind, resultType string, returned int, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(kind, resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(kind).Observe(latency.Seconds())
	if returned >= 0 {
		h.metrics.SearchResultsCount.WithLabelValues(kind).Observe(float64(returned))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

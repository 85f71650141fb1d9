// Package analytics publishes search events to Kafka through a buffered,
// non-blocking collector. Publishing is best-effort observability and never
// affects query results.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventCacheHit   EventType = "cache_hit"
	EventIndexBuild EventType = "index_build"
)

// SearchEvent describes one executed query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Kind      string    `json:"kind"`
	Query     string    `json:"query"`
	Operation string    `json:"operation"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
}

// BuildEvent describes one completed index build.
type BuildEvent struct {
	Type          EventType `json:"type"`
	Documents     int       `json:"documents"`
	UniqueTerms   int       `json:"unique_terms"`
	TotalTerms    int       `json:"total_terms"`
	SkippedDocs   int       `json:"skipped_docs"`
	DurationMs    int64     `json:"duration_ms"`
	IndexPath     string    `json:"index_path"`
	IndexFormat   string    `json:"index_format"`
	CorpusBackend string    `json:"corpus_backend"`
	Timestamp     time.Time `json:"timestamp"`
}

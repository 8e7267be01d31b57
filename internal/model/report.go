package model

import "time"

// AnswerResult is the final outcome of one (url, question) query: the
// generated answer plus provenance metadata. It is what gets cached,
// rendered by report writers, and returned by the HTTP API.
type AnswerResult struct {
	// Answer is the generated natural-language answer, or the fixed
	// no-relevant-information response when retrieval found nothing.
	Answer string `json:"answer"`

	// Namespace is the partition the answer was computed against.
	Namespace Namespace `json:"namespace"`

	// URL is the target site URL from the request.
	URL string `json:"url"`

	// Question is the question that was answered.
	Question string `json:"question"`

	// ProcessedAt is when the answer was computed.
	ProcessedAt time.Time `json:"processed_at"`

	// PagesIngested is the number of pages crawled during this request.
	// Zero when the namespace was already populated or the answer came
	// from cache.
	PagesIngested int `json:"pages_ingested"`

	// NoContext reports that retrieval produced no usable context and the
	// generation service was never called.
	NoContext bool `json:"no_context,omitempty"`

	// CacheHit reports that the answer was served from the answer cache.
	// Never persisted as true; set on the read path.
	CacheHit bool `json:"cache_hit,omitempty"`
}

// QueryReport accumulates state as pipeline steps execute for a single
// inbound (url, question) request. Steps read what earlier steps produced
// and record their own results here.
type QueryReport struct {
	// URL is the validated target site URL.
	URL string

	// Question is the natural-language question to answer.
	Question string

	// Namespace is the derived partition key for the target.
	Namespace Namespace

	// Crawled reports whether this request triggered an ingestion run.
	Crawled bool

	// PageCount is the number of pages ingested by this request.
	PageCount int

	// Result is the computed or cached answer. A non-nil Result causes
	// later compute steps to become no-ops.
	Result *AnswerResult

	// Err is the first fatal error encountered by a step, if any.
	Err error
}

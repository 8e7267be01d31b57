package config

import "errors"

// Configuration validation errors.
// These are returned by Config.Validate() and name exactly what is wrong.
//
// Design decision: package-level sentinel errors rather than fresh error
// instances in Validate(), so callers can use errors.Is() while the
// messages stay human-readable. errors.New() suffices because none of
// these carry dynamic values.
var (
	// ErrMissingAPIKey is returned when no Gemini API key is configured.
	// Embedding and generation are impossible without it.
	ErrMissingAPIKey = errors.New("missing API key: set GEMINI_API_KEY or the api_key config entry")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	// Depth 0 is valid and means only the start page.
	ErrInvalidDepth = errors.New("invalid crawl depth: must be non-negative")

	// ErrInvalidFanOut is returned when the per-page link cap is not
	// positive. A cap of zero would make every crawl a single page.
	ErrInvalidFanOut = errors.New("invalid max links per page: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is
	// negative. Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidChunkPolicy is returned for an unknown chunking policy.
	ErrInvalidChunkPolicy = errors.New(`invalid chunk policy: must be "sentence" or "word"`)

	// ErrInvalidNamespaceScope is returned for an unknown namespace scope.
	ErrInvalidNamespaceScope = errors.New(`invalid namespace scope: must be "url" or "domain"`)

	// ErrInvalidTopK is returned when the retrieval match count is not
	// positive.
	ErrInvalidTopK = errors.New("invalid top-k: must be positive")

	// ErrInvalidCacheTTL is returned when the cache TTL is not positive.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

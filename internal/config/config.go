package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/sitesage/sitesage/internal/model"
)

// Default configuration values.
// These are chosen for polite crawling of public websites and for the
// request/size limits of the Gemini embedding and generation services.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitesage"

	// DefaultFetchTimeout is the per-request timeout for page fetches.
	// 30 seconds is generous for slow origins without letting a single
	// hung connection stall the whole crawl.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxDepth limits how far the crawl recurses from the start URL.
	// Depth 0 is the start page itself. Three levels reaches the bulk of a
	// typical site's substantive content without exploding the page count.
	DefaultMaxDepth = 3

	// DefaultMaxLinksPerPage caps how many newly discovered links are
	// followed from each page. The crawl is a best-effort sample of the
	// site, not an exhaustive spider; a small fan-out keeps it tractable.
	DefaultMaxLinksPerPage = 4

	// DefaultMaxPages bounds the total pages fetched in one ingestion run.
	DefaultMaxPages = 50

	// DefaultCrawlDelay is the politeness delay between consecutive page
	// fetches. This paces load on the crawled site, independent of the
	// governor that paces the AI services.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultFetchRetries is the number of attempts for a single page
	// fetch before the page is abandoned.
	DefaultFetchRetries = 3

	// DefaultFetchRetryBase is the base delay between fetch attempts.
	// The actual delay grows linearly: base * attemptNumber.
	DefaultFetchRetryBase = time.Second

	// DefaultUserAgent is a realistic browser User-Agent. Many sites serve
	// degraded or empty pages to obvious bot agents.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

	// DefaultMaxBodySize limits the response body size read per page.
	// 10MB covers any realistic HTML page while bounding memory use.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultMaxChunkBytes is the byte bound for the sentence-accumulating
	// chunking policy. Sized well under the embedding service's input
	// limit so a chunk never has to be truncated at upsert time.
	DefaultMaxChunkBytes = 1500

	// DefaultChunkTokenBudget is the token budget for the
	// word-accumulating chunking policy (tokens estimated as length/4).
	DefaultChunkTokenBudget = 400

	// DefaultTopK is the number of nearest matches requested from the
	// vector store per question.
	DefaultTopK = 5

	// DefaultContextTokenBudget bounds the estimated token cost of the
	// prompt sent to the generation service. Kept conservatively below
	// the model's context window to leave room for the answer.
	DefaultContextTokenBudget = 6000

	// DefaultCacheTTL is how long a computed answer stays valid in the
	// answer cache. After expiry the entry is treated as absent.
	DefaultCacheTTL = time.Hour

	// DefaultCrawlDeadline bounds one whole ingestion run. When exceeded,
	// outstanding recursion is abandoned and partial results are used.
	DefaultCrawlDeadline = 5 * time.Minute

	// DefaultServeAddr is the listen address for the HTTP serve mode.
	DefaultServeAddr = ":8080"
)

// ChunkPolicy selects the text chunking strategy.
type ChunkPolicy string

const (
	// ChunkPolicySentence accumulates sentences up to a byte bound.
	ChunkPolicySentence ChunkPolicy = "sentence"

	// ChunkPolicyWord accumulates words up to a token-estimate budget.
	ChunkPolicyWord ChunkPolicy = "word"
)

// Config holds all configuration options for sitesage.
// It is populated from CLI flags (and optionally a YAML config file) and
// passed through the application via dependency injection rather than
// global state.
type Config struct {
	// GeminiAPIKey authenticates against the embedding and generation
	// services. Required for all answering operations.
	GeminiAPIKey string

	// DataDir is the directory holding the vector store and answer cache.
	// Defaults to the XDG data directory.
	DataDir string

	// FetchTimeout is the per-request timeout for page fetches.
	FetchTimeout time.Duration

	// MaxDepth is the maximum crawl recursion depth. The start URL is
	// depth 0; pages beyond the bound are neither fetched nor counted.
	MaxDepth int

	// MaxLinksPerPage caps the newly discovered links followed per page.
	MaxLinksPerPage int

	// MaxPages bounds the total pages fetched in one ingestion run.
	MaxPages int

	// CrawlDelay is the politeness delay between consecutive page fetches.
	CrawlDelay time.Duration

	// FetchRetries is the attempt count for a single page fetch.
	FetchRetries int

	// FetchRetryBase is the base of the linear retry delay.
	FetchRetryBase time.Duration

	// UserAgent is the User-Agent header sent with page fetches.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ChunkPolicy selects the chunking strategy: sentence or word.
	ChunkPolicy ChunkPolicy

	// MaxChunkBytes is the byte bound for the sentence policy.
	MaxChunkBytes int

	// ChunkTokenBudget is the token budget for the word policy.
	ChunkTokenBudget int

	// NamespaceScope selects whether the namespace hashes the full URL
	// or only the domain.
	NamespaceScope model.NamespaceScope

	// TopK is the number of nearest matches retrieved per question.
	TopK int

	// ContextTokenBudget bounds the estimated prompt size sent to the
	// generation service.
	ContextTokenBudget int

	// CacheTTL is the answer cache time-to-live.
	CacheTTL time.Duration

	// CrawlDeadline bounds one whole ingestion run.
	CrawlDeadline time.Duration

	// Verbose enables debug-level logging.
	Verbose bool

	// JSONReport enables JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output. Mutually exclusive
	// with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. When set, the
	// report is written there instead of stdout.
	ReportFile string

	// ServeAddr is the listen address for serve mode.
	ServeAddr string

	// ConfigFilePath is the path to the YAML configuration file. If
	// empty, .sitesage is searched in the current and home directories.
	ConfigFilePath string

	// Sites holds per-site overrides loaded from the config file.
	Sites *File
}

// NewConfig creates a Config with default values.
//
// Design decision: we use a constructor instead of relying on zero values
// because most defaults are non-zero, and the constructor doubles as
// documentation of what they are.
func NewConfig() *Config {
	return &Config{
		DataDir:            XDGDataDir(),
		FetchTimeout:       DefaultFetchTimeout,
		MaxDepth:           DefaultMaxDepth,
		MaxLinksPerPage:    DefaultMaxLinksPerPage,
		MaxPages:           DefaultMaxPages,
		CrawlDelay:         DefaultCrawlDelay,
		FetchRetries:       DefaultFetchRetries,
		FetchRetryBase:     DefaultFetchRetryBase,
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
		ChunkPolicy:        ChunkPolicySentence,
		MaxChunkBytes:      DefaultMaxChunkBytes,
		ChunkTokenBudget:   DefaultChunkTokenBudget,
		NamespaceScope:     model.ScopeURL,
		TopK:               DefaultTopK,
		ContextTokenBudget: DefaultContextTokenBudget,
		CacheTTL:           DefaultCacheTTL,
		CrawlDeadline:      DefaultCrawlDeadline,
		ServeAddr:          DefaultServeAddr,
	}
}

// XDGDataDir returns the XDG data directory for sitesage.
// On Linux: ~/.local/share/sitesage.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitesage.
// On Linux: ~/.config/sitesage.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks that the configuration is usable.
// It returns the first problem found; fixing one error often makes
// later ones irrelevant.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxLinksPerPage <= 0 {
		return ErrInvalidFanOut
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ChunkPolicy != ChunkPolicySentence && c.ChunkPolicy != ChunkPolicyWord {
		return ErrInvalidChunkPolicy
	}
	if c.NamespaceScope != model.ScopeURL && c.NamespaceScope != model.ScopeDomain {
		return ErrInvalidNamespaceScope
	}
	if c.TopK <= 0 {
		return ErrInvalidTopK
	}
	if c.CacheTTL <= 0 {
		return ErrInvalidCacheTTL
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// SiteOverrides returns the effective per-site configuration for a host,
// or the zero value when no config file was loaded.
func (c *Config) SiteOverrides(host string) SiteConfig {
	if c.Sites == nil {
		return SiteConfig{}
	}
	return c.Sites.GetSiteConfig(host)
}

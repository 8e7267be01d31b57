package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/sitesage/sitesage/internal/chunker"
	"github.com/sitesage/sitesage/internal/model"
)

// ErrStartUnreachable is returned when the start URL cannot be fetched
// after exhausting retries. This is the only page failure that fails the
// whole ingestion; every other page is abandoned quietly.
var ErrStartUnreachable = errors.New("start URL unreachable")

// Embedder turns text into fixed-size numeric vectors.
type Embedder interface {
	// EmbedBatch embeds several texts in one round trip where the
	// service supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter is the write side of the vector store used during
// ingestion.
type VectorWriter interface {
	// Upsert stores one chunk vector with its metadata and content under
	// a namespace. IDs are unique per inserted chunk within a run.
	Upsert(ctx context.Context, ns model.Namespace, id string, vector []float32, metadata map[string]string, content string) error
}

// Spider crawls a website breadth-first within depth and fan-out bounds,
// ingesting each page's chunks into the vector store before following its
// links. It owns the visited set for the duration of one run; a Spider is
// built per ingestion and not reused.
type Spider struct {
	client   *http.Client
	embedder Embedder
	store    VectorWriter
	chunks   *chunker.Chunker
	logger   *slog.Logger

	// maxDepth bounds recursion from the start URL (depth 0).
	maxDepth int

	// maxLinks caps newly discovered links followed per page. The crawl
	// is a best-effort sample of the site, not an exhaustive spider.
	maxLinks int

	// maxPages bounds total pages fetched in one run.
	maxPages int

	// delay is the politeness delay between consecutive page fetches.
	// This paces the crawled site, a different external resource than the
	// AI services governed elsewhere.
	delay time.Duration

	// retries and retryBase shape the bounded per-fetch retry: up to
	// retries attempts with a linearly increasing delay between them.
	retries   int
	retryBase time.Duration

	userAgent   string
	maxBodySize int64
	headers     map[string]string

	// visited tracks canonical URLs already fetched or queued this run.
	// A URL enters at most once; insertion happens before the fetch is
	// issued, so "insert" is the exclusion point.
	visited map[string]bool
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth. 0 means only the start page.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) { s.maxDepth = depth }
}

// WithMaxLinksPerPage caps the newly discovered links followed per page.
func WithMaxLinksPerPage(n int) SpiderOption {
	return func(s *Spider) { s.maxLinks = n }
}

// WithMaxPages bounds the total pages fetched in one run.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) { s.maxPages = n }
}

// WithDelay sets the politeness delay between page fetches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) { s.delay = d }
}

// WithFetchRetry sets the per-fetch attempt count and base delay.
// The delay between attempts grows linearly: base * attemptNumber.
func WithFetchRetry(attempts int, base time.Duration) SpiderOption {
	return func(s *Spider) {
		if attempts > 0 {
			s.retries = attempts
		}
		if base > 0 {
			s.retryBase = base
		}
	}
}

// WithUserAgent sets the User-Agent header for page fetches.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) { s.userAgent = ua }
}

// WithMaxBodySize limits the response body size read per page.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) { s.maxBodySize = size }
}

// WithHeaders sets extra request headers, e.g. from per-site config.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) { s.headers = headers }
}

// WithSpiderLogger sets the logger for crawl events.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) { s.logger = logger }
}

// NewSpider creates a Spider. The HTTP client is injected so transports
// and timeouts are owned by the caller and tests can point the spider at
// a local server.
func NewSpider(client *http.Client, embedder Embedder, store VectorWriter, chunks *chunker.Chunker, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		embedder:    embedder,
		store:       store,
		chunks:      chunks,
		maxDepth:    3,
		maxLinks:    4,
		maxPages:    50,
		delay:       500 * time.Millisecond,
		retries:     3,
		retryBase:   time.Second,
		userAgent:   "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
		maxBodySize: 10 * 1024 * 1024, // 10MB
		visited:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	// PageCount is the number of pages successfully ingested. With
	// deadlines or abandoned pages this can be smaller than the link
	// graph; that is a normal outcome, not an error.
	PageCount int

	// ChunkCount is the number of chunks stored across all pages.
	ChunkCount int
}

// Ingest crawls from startURL and writes each page's chunks into the
// vector store under the namespace. Traversal is an explicit work list
// (no unbounded recursion), sequential and depth-bounded; a page's own
// content is stored before its links are followed.
//
// A single page's fetch, extraction, or storage failure never aborts the
// rest of the crawl. Ingest fails only when the start URL itself cannot
// be fetched after retries, in which case zero pages are recorded.
func (s *Spider) Ingest(ctx context.Context, startURL string, ns model.Namespace) (*IngestResult, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}

	canonical, ok := Normalize(start, startURL)
	if !ok {
		return nil, fmt.Errorf("invalid start URL %q", startURL)
	}

	// runID keeps chunk IDs unique across reruns into the same namespace.
	runID := uuid.NewString()[:8]

	result := &IngestResult{}
	queue := []model.CrawlTask{{URL: canonical, Depth: 0}}
	pageOrdinal := 0

	for len(queue) > 0 && result.PageCount < s.maxPages {
		select {
		case <-ctx.Done():
			// Deadline or cancellation: abandon outstanding work, keep
			// what was ingested.
			s.logger.Warn("crawl cancelled, keeping partial results",
				"pages", result.PageCount, "reason", ctx.Err())
			return result, nil
		default:
		}

		task := queue[0]
		queue = queue[1:]

		if s.visited[task.URL] {
			continue
		}
		// Insertion before fetch is the exclusion point: a URL
		// discovered twice before its first fetch completes is still
		// fetched once.
		s.visited[task.URL] = true

		page, err := s.fetchPage(ctx, task.URL)
		if err != nil {
			if task.Depth == 0 && result.PageCount == 0 {
				return nil, fmt.Errorf("%w: %w", ErrStartUnreachable, err)
			}
			s.logger.Warn("page abandoned after retries", "url", task.URL, "error", err)
			continue
		}

		stored, err := s.ingestPage(ctx, page, ns, runID, pageOrdinal)
		if err != nil {
			// The page contributes no content, the crawl continues.
			s.logger.Warn("page ingestion failed", "url", task.URL, "error", err)
		} else {
			result.ChunkCount += stored
		}
		result.PageCount++
		pageOrdinal++

		// Chunks are stored before children are queued, so a page's own
		// content is never deferred behind its links.
		if task.Depth < s.maxDepth {
			queued := 0
			for _, link := range page.InternalLinks {
				if queued >= s.maxLinks {
					break
				}
				if !s.visited[link] {
					queue = append(queue, model.CrawlTask{URL: link, Depth: task.Depth + 1})
					queued++
				}
			}
		}

		if s.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				return result, nil
			case <-time.After(s.delay):
			}
		}
	}

	return result, nil
}

// fetchPage fetches and extracts one page, retrying transport failures
// and non-2xx responses with a linearly increasing delay before giving
// the page up.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (*model.PageContent, error) {
	var page *model.PageContent

	err := retry.Do(
		func() error {
			var err error
			page, err = s.fetchOnce(ctx, pageURL)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.retries)),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return s.retryBase * time.Duration(n+1)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// fetchOnce performs a single GET and extraction.
func (s *Spider) fetchOnce(ctx context.Context, pageURL string) (*model.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	extracted := NewExtractor(s.logger).Extract(doc)

	page := &model.PageContent{
		URL:             pageURL,
		Title:           extracted.Title,
		MetaDescription: extracted.MetaDescription,
		MainContent:     extracted.MainContent(),
		StructuredData:  extracted.StructuredData,
	}

	linkSeen := make(map[string]bool)
	for _, raw := range extracted.RawLinks {
		if canonical, ok := Normalize(base, raw); ok && !linkSeen[canonical] {
			linkSeen[canonical] = true
			page.InternalLinks = append(page.InternalLinks, canonical)
		}
	}

	return page, nil
}

// ingestPage chunks a page's content, embeds the chunks, and upserts them
// into the vector store. Returns the number of chunks stored. A chunk
// whose upsert fails is logged and dropped; the remaining chunks are
// still processed.
func (s *Spider) ingestPage(ctx context.Context, page *model.PageContent, ns model.Namespace, runID string, pageOrdinal int) (int, error) {
	texts := s.chunks.Chunk(page.MainContent)
	if len(texts) == 0 {
		s.logger.Debug("no chunks above content floor", "url", page.URL)
		return 0, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", page.URL, err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks", page.URL, len(vectors), len(texts))
	}

	stored := 0
	for i, text := range texts {
		chunk := model.Chunk{
			Text:        text,
			Ordinal:     i,
			SourceURL:   page.URL,
			SourceTitle: page.Title,
		}

		id := fmt.Sprintf("%s:%s:%d:%d", ns, runID, pageOrdinal, chunk.Ordinal)
		metadata := map[string]string{
			"source_url":   chunk.SourceURL,
			"source_title": chunk.SourceTitle,
			"ordinal":      fmt.Sprintf("%d", chunk.Ordinal),
		}

		if err := s.store.Upsert(ctx, ns, id, vectors[i], metadata, chunk.Text); err != nil {
			s.logger.Warn("chunk dropped", "id", id, "error", err)
			continue
		}
		stored++
	}

	s.logger.Debug("page ingested", "url", page.URL, "chunks", stored)
	return stored, nil
}

// Visited reports whether a canonical URL was fetched or queued during
// this run.
func (s *Spider) Visited(url string) bool {
	return s.visited[url]
}

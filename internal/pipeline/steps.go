package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sitesage/sitesage/internal/cache"
	"github.com/sitesage/sitesage/internal/crawler"
	"github.com/sitesage/sitesage/internal/model"
)

// AnswerCache is the cache contract the pipeline consumes.
type AnswerCache interface {
	Get(ctx context.Context, ns model.Namespace, question string) (*model.AnswerResult, error)
	Put(ctx context.Context, ns model.Namespace, question string, result *model.AnswerResult) error
}

// IngestionChecker reports whether a namespace still needs ingestion.
type IngestionChecker interface {
	NeedsIngestion(ns model.Namespace) bool
}

// Ingester runs one ingestion crawl. Satisfied by *crawler.Spider.
type Ingester interface {
	Ingest(ctx context.Context, startURL string, ns model.Namespace) (*crawler.IngestResult, error)
}

// Answerer answers one question against one namespace.
type Answerer interface {
	Answer(ctx context.Context, ns model.Namespace, url, question string) (*model.AnswerResult, error)
}

// ResolveStep derives the namespace for the target URL. It runs first so
// invalid input fails before any network call is made.
type ResolveStep struct {
	// Scope selects url- or domain-scoped namespace derivation.
	Scope model.NamespaceScope
}

// Name returns the step name.
func (s *ResolveStep) Name() string { return "resolve_namespace" }

// Do derives and records the namespace.
func (s *ResolveStep) Do(_ context.Context, report *model.QueryReport) error {
	ns, err := model.ResolveNamespace(report.URL, s.Scope)
	if err != nil {
		return err
	}
	report.Namespace = ns
	return nil
}

// CacheLookupStep checks the answer cache for (namespace, question).
// A hit short-circuits the rest of the pipeline: later compute steps see
// a populated result and become no-ops, so no embedding, retrieval, or
// generation call is issued.
type CacheLookupStep struct {
	Cache  AnswerCache
	Logger *slog.Logger
}

// Name returns the step name.
func (s *CacheLookupStep) Name() string { return "cache_lookup" }

// Do looks up the cached answer; a miss is not an error.
func (s *CacheLookupStep) Do(ctx context.Context, report *model.QueryReport) error {
	result, err := s.Cache.Get(ctx, report.Namespace, report.Question)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return fmt.Errorf("cache lookup: %w", err)
	}

	logger(s.Logger).Info("answer served from cache", "namespace", report.Namespace)
	report.Result = result
	return nil
}

// IngestStep crawls the target site when its namespace holds no vectors.
// A namespace already reporting stored vectors skips crawling entirely,
// which is what makes repeated queries against the same site cheap.
type IngestStep struct {
	Checker IngestionChecker

	// NewIngester builds a fresh ingester per run; the spider's visited
	// set must not leak between runs.
	NewIngester func() Ingester

	// Deadline bounds one ingestion run. Zero means no bound.
	Deadline time.Duration

	Logger *slog.Logger
}

// Name returns the step name.
func (s *IngestStep) Name() string { return "ingest" }

// Do runs ingestion when needed.
func (s *IngestStep) Do(ctx context.Context, report *model.QueryReport) error {
	if report.Result != nil {
		return nil
	}

	if !s.Checker.NeedsIngestion(report.Namespace) {
		logger(s.Logger).Debug("namespace already ingested", "namespace", report.Namespace)
		return nil
	}

	if s.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Deadline)
		defer cancel()
	}

	result, err := s.NewIngester().Ingest(ctx, report.URL, report.Namespace)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", report.URL, err)
	}

	report.Crawled = true
	report.PageCount = result.PageCount
	logger(s.Logger).Info("site ingested",
		"namespace", report.Namespace,
		"pages", result.PageCount,
		"chunks", result.ChunkCount,
	)
	return nil
}

// AnswerStep computes the answer via retrieval and generation.
type AnswerStep struct {
	Answerer Answerer
}

// Name returns the step name.
func (s *AnswerStep) Name() string { return "answer" }

// Do answers the question unless a cached result already exists.
func (s *AnswerStep) Do(ctx context.Context, report *model.QueryReport) error {
	if report.Result != nil {
		return nil
	}

	result, err := s.Answerer.Answer(ctx, report.Namespace, report.URL, report.Question)
	if err != nil {
		return err
	}

	result.PagesIngested = report.PageCount
	report.Result = result
	return nil
}

// CacheStoreStep writes a freshly computed answer back to the cache.
type CacheStoreStep struct {
	Cache  AnswerCache
	Logger *slog.Logger
}

// Name returns the step name.
func (s *CacheStoreStep) Name() string { return "cache_store" }

// Do stores the result. Results that came from the cache are not written
// back; that would silently extend their TTL.
func (s *CacheStoreStep) Do(ctx context.Context, report *model.QueryReport) error {
	if report.Result == nil || report.Result.CacheHit {
		return nil
	}

	if err := s.Cache.Put(ctx, report.Namespace, report.Question, report.Result); err != nil {
		// A failed cache write degrades later requests, not this one.
		logger(s.Logger).Warn("cache write failed", "namespace", report.Namespace, "error", err)
	}
	return nil
}

// logger returns l or the default logger.
func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

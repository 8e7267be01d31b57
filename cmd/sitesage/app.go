package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sitesage/sitesage/internal/cache"
	"github.com/sitesage/sitesage/internal/chunker"
	"github.com/sitesage/sitesage/internal/config"
	"github.com/sitesage/sitesage/internal/crawler"
	"github.com/sitesage/sitesage/internal/gemini"
	"github.com/sitesage/sitesage/internal/governor"
	"github.com/sitesage/sitesage/internal/pipeline"
	"github.com/sitesage/sitesage/internal/rag"
	"github.com/sitesage/sitesage/internal/vectorstore"
)

// app bundles the long-lived collaborators shared by every request:
// the governed Gemini client, the persistent vector store, and the
// answer cache. Pipelines and spiders are built per request on top.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	gem      *gemini.Client
	store    *vectorstore.Store
	answers  *cache.AnswerCache
	answerer *rag.Answerer
}

// newApp wires the application from configuration.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	// One governor paces both embedding and generation calls; they share
	// the provider's quota.
	gov := governor.New(governor.WithLogger(logger))

	gem, err := gemini.New(ctx, cfg.GeminiAPIKey, gov)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	store, err := vectorstore.Open(cfg.DataDir)
	if err != nil {
		gem.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	answers, err := cache.Open(cfg.DataDir, cfg.CacheTTL)
	if err != nil {
		gem.Close()
		return nil, fmt.Errorf("open answer cache: %w", err)
	}

	answerer := rag.New(gem, store, gem,
		rag.WithTopK(cfg.TopK),
		rag.WithTokenBudget(cfg.ContextTokenBudget),
		rag.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		gem:      gem,
		store:    store,
		answers:  answers,
		answerer: answerer,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if err := a.answers.Close(); err != nil {
		a.logger.Error("failed to close answer cache", "error", err)
	}
	a.gem.Close()
}

// newPipeline builds the query pipeline for one request, applying
// per-site overrides to the crawl stage.
func (a *app) newPipeline(site config.SiteConfig) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(a.logger))
	p.AddSteps(
		&pipeline.ResolveStep{Scope: a.cfg.NamespaceScope},
		&pipeline.CacheLookupStep{Cache: a.answers, Logger: a.logger},
		&pipeline.IngestStep{
			Checker:     a.store,
			NewIngester: func() pipeline.Ingester { return a.newSpider(site) },
			Deadline:    a.cfg.CrawlDeadline,
			Logger:      a.logger,
		},
		&pipeline.AnswerStep{Answerer: a.answerer},
		&pipeline.CacheStoreStep{Cache: a.answers, Logger: a.logger},
	)
	return p
}

// newSpider builds one ingestion spider. Spiders own their visited set
// and are never reused across runs.
func (a *app) newSpider(site config.SiteConfig) *crawler.Spider {
	cfg := a.cfg

	depth := cfg.MaxDepth
	if site.Depth > 0 {
		depth = site.Depth
	}
	maxLinks := cfg.MaxLinksPerPage
	if site.MaxLinks > 0 {
		maxLinks = site.MaxLinks
	}
	delay := cfg.CrawlDelay
	if site.Delay > 0 {
		delay = site.Delay
	}

	chunks := chunker.New(chunker.Policy(cfg.ChunkPolicy),
		chunker.WithMaxBytes(cfg.MaxChunkBytes),
		chunker.WithTokenBudget(cfg.ChunkTokenBudget),
	)

	client := &http.Client{Timeout: cfg.FetchTimeout}

	return crawler.NewSpider(client, a.gem, a.store, chunks,
		crawler.WithMaxDepth(depth),
		crawler.WithMaxLinksPerPage(maxLinks),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(delay),
		crawler.WithFetchRetry(cfg.FetchRetries, cfg.FetchRetryBase),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithHeaders(site.Headers),
		crawler.WithSpiderLogger(a.logger),
	)
}

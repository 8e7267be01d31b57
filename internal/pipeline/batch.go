package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sitesage/sitesage/internal/model"
)

// defaultConcurrency bounds parallel pipelines in a batch run.
const defaultConcurrency = 3

// BatchProcessor answers one question against multiple sites
// concurrently. Each URL gets its own pipeline instance because steps
// accumulate per-request state.
type BatchProcessor struct {
	// factory builds a fresh pipeline for each URL.
	factory func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithConcurrency sets the number of URLs processed in parallel.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets the logger for batch progress events.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) { b.logger = logger }
}

// NewBatchProcessor creates a BatchProcessor around a pipeline factory.
func NewBatchProcessor(factory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		factory:     factory,
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Process runs the question against every URL and returns one report per
// URL, in input order. Per-URL failures are recorded on the report rather
// than aborting the batch; only context cancellation stops the whole run.
func (b *BatchProcessor) Process(ctx context.Context, urls []string, question string) []*model.QueryReport {
	reports := make([]*model.QueryReport, len(urls))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			report := &model.QueryReport{URL: url, Question: question}

			b.logger.Debug("batch item started", "url", url)
			if err := b.factory().Execute(ctx, report); err != nil {
				b.logger.Warn("batch item failed", "url", url, "error", err)
			}

			mu.Lock()
			reports[i] = report
			mu.Unlock()
			return nil
		})
	}

	// Goroutines never return errors; Wait only observes cancellation.
	_ = g.Wait()

	return reports
}

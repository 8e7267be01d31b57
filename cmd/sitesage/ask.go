package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitesage/sitesage/internal/config"
	"github.com/sitesage/sitesage/internal/log"
	"github.com/sitesage/sitesage/internal/model"
	"github.com/sitesage/sitesage/internal/pipeline"
	"github.com/sitesage/sitesage/internal/report"
)

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [url...]",
		Short: "Answer a question about one or more websites",
		Long: `Ask crawls each target website, indexes its content into a local
vector store, and answers the question against the indexed content.

The first question about a site pays the crawling and indexing cost;
repeat questions reuse the stored index, and identical questions are
served from a local answer cache until the cache entry expires.

Examples:
  # Ask about a single site
  sitesage ask https://example.com -q "What does this company sell?"

  # Ask the same question about several sites concurrently
  sitesage ask https://a.example https://b.example -q "Is there an API?"

  # Treat all pages of the site as one knowledge base
  sitesage ask https://example.com/docs -q "How do I install it?" --scope domain

  # Output a JSON report to a file
  sitesage ask https://example.com -q "Who runs this site?" --json -o answer.json

Configuration file (.sitesage) example:
  api_key: "your-gemini-api-key"
  namespace_scope: domain
  sites:
    docs.example.com:
      depth: 5
      maxLinks: 8
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAskCmd,
	}

	cmd.Flags().StringP("question", "q", "", "Question to answer (required)")
	_ = cmd.MarkFlagRequired("question")

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum crawl recursion depth (0 = start page only)")
	cmd.Flags().IntP("max-links", "l", config.DefaultMaxLinksPerPage,
		"Maximum links followed per page")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum pages fetched per ingestion run")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Politeness delay between page fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout,
		"Per-request timeout for page fetches")
	cmd.Flags().Duration("crawl-deadline", config.DefaultCrawlDeadline,
		"Overall deadline for one ingestion run (partial results are kept)")

	// Indexing and retrieval flags
	cmd.Flags().String("chunk-policy", string(config.ChunkPolicySentence),
		"Chunking policy: sentence or word")
	cmd.Flags().String("scope", string(model.ScopeURL),
		"Namespace scope: url (per page) or domain (per site)")
	cmd.Flags().IntP("top-k", "k", config.DefaultTopK,
		"Number of nearest matches retrieved per question")
	cmd.Flags().Duration("ttl", config.DefaultCacheTTL,
		"Answer cache time-to-live")

	// Batch flag
	cmd.Flags().IntP("batch", "b", 3,
		"Concurrency when asking about multiple URLs")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitesage in current or home directory)")
	cmd.Flags().String("data-dir", "",
		"Directory for the vector store and answer cache (default: XDG data dir)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runAskCmd executes the ask command.
func runAskCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	question, err := cmd.Flags().GetString("question")
	if err != nil {
		return err
	}

	batch, err := cmd.Flags().GetInt("batch")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runAsk(ctx, cfg, logger, args, question, batch)
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags, the environment,
// and the optional configuration file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	if cfg.FetchTimeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxLinksPerPage, err = cmd.Flags().GetInt("max-links"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = cmd.Flags().GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.CrawlDeadline, err = cmd.Flags().GetDuration("crawl-deadline"); err != nil {
		return nil, err
	}
	if cfg.TopK, err = cmd.Flags().GetInt("top-k"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = cmd.Flags().GetDuration("ttl"); err != nil {
		return nil, err
	}

	chunkPolicy, err := cmd.Flags().GetString("chunk-policy")
	if err != nil {
		return nil, err
	}
	cfg.ChunkPolicy = config.ChunkPolicy(chunkPolicy)

	scope, err := cmd.Flags().GetString("scope")
	if err != nil {
		return nil, err
	}
	cfg.NamespaceScope = model.NamespaceScope(scope)

	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}

	if err := loadSiteConfigs(cmd, cfg); err != nil {
		return nil, err
	}

	// The environment wins over the config file for the API key.
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" && cfg.Sites != nil {
		cfg.GeminiAPIKey = cfg.Sites.APIKey
	}

	return cfg, nil
}

// loadSiteConfigs loads the optional configuration file and folds its
// global settings into cfg where the corresponding flag was not set.
//
// If the user explicitly specified a config file path, a missing file is
// an error. With no path specified, a missing file means empty config.
func loadSiteConfigs(cmd *cobra.Command, cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)

	if path == "" {
		if explicit {
			return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		cfg.Sites = &config.File{Sites: make(map[string]config.SiteConfig)}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.Sites = file

	if file.ChunkPolicy != "" && !cmd.Flags().Changed("chunk-policy") {
		cfg.ChunkPolicy = config.ChunkPolicy(file.ChunkPolicy)
	}
	if file.NamespaceScope != "" && !cmd.Flags().Changed("scope") {
		cfg.NamespaceScope = model.NamespaceScope(file.NamespaceScope)
	}

	return nil
}

// runAsk answers the question about every target URL.
func runAsk(ctx context.Context, cfg *config.Config, logger *slog.Logger, urls []string, question string, batch int) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(urls) > 1 && batch > 1 {
		return runBatchAsk(ctx, a, urls, question, batch)
	}
	return runSequentialAsk(ctx, a, urls, question)
}

// runSequentialAsk processes targets one at a time, applying per-site
// configuration overrides.
func runSequentialAsk(ctx context.Context, a *app, urls []string, question string) error {
	var lastErr error
	for _, target := range urls {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := a.newPipeline(a.cfg.SiteOverrides(hostOf(target)))

		report := &model.QueryReport{URL: target, Question: question}
		start := time.Now()

		if err := p.Execute(ctx, report); err != nil {
			a.logger.Error("ask failed", "url", target, "error", err)
			fmt.Fprintf(os.Stderr, "Error for %s: %v\n", target, err)
			lastErr = err
			continue
		}

		a.logger.Info("question answered",
			"url", target,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)

		if err := outputResult(a.cfg, report.Result); err != nil {
			a.logger.Error("report output failed", "url", target, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// runBatchAsk processes multiple targets concurrently.
//
// Batch mode uses the default site configuration for every target;
// per-site overrides require sequential mode (--batch 1).
func runBatchAsk(ctx context.Context, a *app, urls []string, question string, batch int) error {
	if a.cfg.Sites != nil && len(a.cfg.Sites.Sites) > 0 {
		a.logger.Warn("batch mode ignores site-specific config overrides",
			"siteCount", len(a.cfg.Sites.Sites))
	}

	var defaults config.SiteConfig
	if a.cfg.Sites != nil {
		defaults = a.cfg.Sites.Defaults
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline { return a.newPipeline(defaults) },
		pipeline.WithConcurrency(batch),
		pipeline.WithBatchLogger(a.logger),
	)

	var lastErr error
	for _, r := range bp.Process(ctx, urls, question) {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "Error for %s: %v\n", r.URL, r.Err)
			lastErr = r.Err
			continue
		}
		if err := outputResult(a.cfg, r.Result); err != nil {
			a.logger.Error("report output failed", "url", r.URL, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// hostOf returns the host of a URL, or the raw string when it does not
// parse. Site config lookup tolerates both forms.
func hostOf(target string) string {
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		return u.Host
	}
	return target
}

// outputResult writes the answer in the requested format.
func outputResult(cfg *config.Config, result *model.AnswerResult) error {
	if result == nil {
		return errors.New("no result produced")
	}

	output := os.Stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(result)
	return err
}

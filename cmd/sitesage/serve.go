package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitesage/sitesage/internal/config"
	"github.com/sitesage/sitesage/internal/log"
	"github.com/sitesage/sitesage/internal/pipeline"
	"github.com/sitesage/sitesage/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve question answering over HTTP",
		Long: `Serve starts an HTTP server exposing question answering as an API.

The server accepts POST requests on /api/ask with a JSON body:

  {"url": "https://example.com", "question": "What does this company sell?"}

and responds with the answer and its provenance. The vector store and
answer cache are shared across requests, so repeat questions about the
same site are cheap.

Examples:
  # Serve on the default address
  sitesage serve

  # Serve on a custom port with verbose logging
  sitesage serve --addr :9090 -v`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultServeAddr, "Listen address")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitesage in current or home directory)")
	cmd.Flags().String("data-dir", "",
		"Directory for the vector store and answer cache (default: XDG data dir)")
	cmd.Flags().Duration("ttl", config.DefaultCacheTTL, "Answer cache time-to-live")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.ServeAddr, err = cmd.Flags().GetString("addr"); err != nil {
		return err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if cfg.CacheTTL, err = cmd.Flags().GetDuration("ttl"); err != nil {
		return err
	}

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if err := loadSiteConfigs(cmd, cfg); err != nil {
		return err
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" && cfg.Sites != nil {
		cfg.GeminiAPIKey = cfg.Sites.APIKey
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var defaults config.SiteConfig
	if cfg.Sites != nil {
		defaults = cfg.Sites.Defaults
	}

	srv := server.New(
		func() *pipeline.Pipeline { return a.newPipeline(defaults) },
		server.WithAddr(cfg.ServeAddr),
		server.WithLogger(logger),
	)

	return srv.ListenAndServe(ctx)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitesage.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitesage",
		Short: "Ask questions about any website",
		Long: `sitesage answers natural-language questions about websites.

It crawls the target site within polite bounds, indexes the extracted
content into a local vector store, and answers questions against that
index using the Gemini embedding and generation services. Repeat
questions about the same site reuse the stored index and a local
answer cache, so only the first question pays the crawling cost.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

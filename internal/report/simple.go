package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/sitesage/sitesage/internal/model"
)

// SimpleWriter outputs human-readable text results.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the provenance section in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with provenance details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(result *model.AnswerResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	sb.WriteString(result.Answer)
	sb.WriteString("\n")

	if w.verbose {
		w.writeProvenance(&sb, result)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the question and source line.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.AnswerResult) {
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Q: %s\n", result.Question))
	sb.WriteString(fmt.Sprintf("Source: %s\n", result.URL))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
}

// writeProvenance writes the provenance section.
func (w *SimpleWriter) writeProvenance(sb *strings.Builder, result *model.AnswerResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Namespace:      %s\n", result.Namespace))
	sb.WriteString(fmt.Sprintf("Processed At:   %s\n", result.ProcessedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Pages Ingested: %d\n", result.PagesIngested))

	switch {
	case result.CacheHit:
		sb.WriteString("Status:         Cached\n")
	case result.NoContext:
		sb.WriteString("Status:         No relevant context found\n")
	default:
		sb.WriteString("Status:         Complete\n")
	}
}

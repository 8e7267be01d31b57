// Package report provides answer output in multiple formats.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for documentation and sharing
//
// Design decision: We separate result rendering from the result data
// structures (which are in the model package) to follow the single
// responsibility principle. This allows adding new output formats
// without modifying the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report

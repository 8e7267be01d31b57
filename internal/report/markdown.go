package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/sitesage/sitesage/internal/model"
)

// MarkdownWriter outputs results in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.AnswerResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeAnswer(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the question header and provenance table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.AnswerResult) {
	md.H1("Answer Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Question", result.Question},
			{"Source", "`" + result.URL + "`"},
			{"Namespace", "`" + string(result.Namespace) + "`"},
			{"Processed At", result.ProcessedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Ingested", strconv.Itoa(result.PagesIngested)},
			{"Status", w.getStatusText(result)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on result state.
func (w *MarkdownWriter) getStatusText(result *model.AnswerResult) string {
	switch {
	case result.CacheHit:
		return "♻️ Cached"
	case result.NoContext:
		return "⚠️ No relevant context found"
	default:
		return "✅ Complete"
	}
}

// writeAnswer writes the answer section.
func (w *MarkdownWriter) writeAnswer(md *markdown.Markdown, result *model.AnswerResult) {
	md.H2("Answer")
	md.PlainText("")
	md.PlainText(result.Answer)
	md.PlainText("")

	if result.NoContext {
		md.Note("Retrieval produced no usable context; the generation service was not called.")
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by sitesage*")
}

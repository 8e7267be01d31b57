package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sitesage/sitesage/internal/model"
)

func testResult() *model.AnswerResult {
	return &model.AnswerResult{
		Answer:        "The project is licensed under MIT.",
		Namespace:     model.Namespace("example-com-0123456789abcdef"),
		URL:           "https://example.com/docs",
		Question:      "What license does the project use?",
		ProcessedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		PagesIngested: 7,
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes question, source and answer", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		n, err := w.Write(testResult())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("Write() n = %d, want %d", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"Q: What license does the project use?",
			"Source: https://example.com/docs",
			"The project is licensed under MIT.",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("verbose adds provenance", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.Write(testResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"Namespace:      example-com-0123456789abcdef",
			"Pages Ingested: 7",
			"Status:         Complete",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("verbose reports cached status", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		result := testResult()
		result.CacheHit = true
		if _, err := w.Write(result); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		if !strings.Contains(buf.String(), "Status:         Cached") {
			t.Errorf("output missing cached status:\n%s", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithVersion("1.2.3"))

		if _, err := w.Write(testResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		var decoded JSONResult
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Version != "1.2.3" {
			t.Errorf("Version = %q, want %q", decoded.Version, "1.2.3")
		}
		if decoded.Result == nil || decoded.Result.Answer != "The project is licensed under MIT." {
			t.Errorf("Result = %+v, want original answer", decoded.Result)
		}
	})

	t.Run("pretty print emits indented output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(testResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		if !strings.Contains(buf.String(), "\n  ") {
			t.Errorf("expected indented output, got:\n%s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders header table and answer", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(testResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"# Answer Report",
			"## Answer",
			"`https://example.com/docs`",
			"The project is licensed under MIT.",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("no-context result carries a note", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		result := testResult()
		result.NoContext = true
		if _, err := w.Write(result); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		if !strings.Contains(buf.String(), "NOTE") {
			t.Errorf("expected note alert in output:\n%s", buf.String())
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(testResult())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("Write() n = %d, want %d", n, text.Len()+js.Len())
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(&failWriter{}, NewSimpleWriter(&buf))

		if _, err := mw.Write(testResult()); err == nil {
			t.Fatal("expected error from failing writer")
		}
		if buf.Len() != 0 {
			t.Error("expected no output after failing writer")
		}
	})
}

// failWriter always fails.
type failWriter struct{}

func (f *failWriter) Write(*model.AnswerResult) (int, error) {
	return 0, errors.New("write failed")
}

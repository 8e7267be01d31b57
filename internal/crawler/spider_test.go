package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sitesage/sitesage/internal/chunker"
	"github.com/sitesage/sitesage/internal/model"
)

// longText is page content comfortably above the chunk content floor.
const longText = "This paragraph carries enough substantive text to clear the minimum " +
	"chunk length floor used during ingestion. It talks about the product, the team, " +
	"and the installation procedure in plausible detail."

// fakeEmbedder returns deterministic vectors, one per input text.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches int
	err     error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1}
	}
	return vectors, nil
}

// upsertRecord captures one store write.
type upsertRecord struct {
	ns       model.Namespace
	id       string
	content  string
	metadata map[string]string
}

// recordingStore records upserts instead of persisting them.
type recordingStore struct {
	mu      sync.Mutex
	records []upsertRecord
	err     error
}

func (r *recordingStore) Upsert(_ context.Context, ns model.Namespace, id string, _ []float32, metadata map[string]string, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, upsertRecord{ns: ns, id: id, content: content, metadata: metadata})
	return nil
}

// countingHandler serves pages and counts requests per path.
type countingHandler struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
}

func newCountingHandler(pages map[string]string) *countingHandler {
	return &countingHandler{hits: make(map[string]int), pages: pages}
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.hits[r.URL.Path]++
	h.mu.Unlock()

	page, ok := h.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, page)
}

func (h *countingHandler) hitCount(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

func page(body string) string {
	return "<html><head><title>t</title></head><body>" + body + "</body></html>"
}

func newTestSpider(t *testing.T, embedder Embedder, store VectorWriter, opts ...SpiderOption) *Spider {
	t.Helper()
	base := []SpiderOption{
		WithDelay(0),
		WithFetchRetry(3, time.Millisecond),
	}
	return NewSpider(http.DefaultClient, embedder, store,
		chunker.New(chunker.PolicySentence), append(base, opts...)...)
}

func TestSpiderIngest(t *testing.T) {
	t.Parallel()

	t.Run("single page stored under namespace", func(t *testing.T) {
		t.Parallel()

		handler := newCountingHandler(map[string]string{
			"/": page("<p>" + longText + "</p>"),
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		embedder := &fakeEmbedder{}
		store := &recordingStore{}
		s := newTestSpider(t, embedder, store)

		ns := model.Namespace("example-abc123")
		result, err := s.Ingest(context.Background(), srv.URL, ns)
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 1 {
			t.Errorf("PageCount = %d, want 1", result.PageCount)
		}
		if result.ChunkCount == 0 {
			t.Fatal("ChunkCount = 0, want chunks stored")
		}
		for _, rec := range store.records {
			if rec.ns != ns {
				t.Errorf("record namespace = %q, want %q", rec.ns, ns)
			}
			if !strings.HasPrefix(rec.id, string(ns)+":") {
				t.Errorf("chunk id %q not prefixed with namespace", rec.id)
			}
			if rec.metadata["source_url"] == "" {
				t.Error("chunk metadata missing source_url")
			}
		}
	})

	t.Run("each page fetched at most once", func(t *testing.T) {
		t.Parallel()

		handler := newCountingHandler(map[string]string{
			"/":  page(`<p>` + longText + `</p><a href="/a">a</a><a href="/b">b</a>`),
			"/a": page(`<p>` + longText + `</p><a href="/">home</a><a href="/b">b</a>`),
			"/b": page(`<p>` + longText + `</p><a href="/a">a</a>`),
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		s := newTestSpider(t, &fakeEmbedder{}, &recordingStore{})

		result, err := s.Ingest(context.Background(), srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 3 {
			t.Errorf("PageCount = %d, want 3", result.PageCount)
		}
		for _, path := range []string{"/", "/a", "/b"} {
			if hits := handler.hitCount(path); hits != 1 {
				t.Errorf("path %s fetched %d times, want 1", path, hits)
			}
		}
	})

	t.Run("depth zero fetches only the start page", func(t *testing.T) {
		t.Parallel()

		handler := newCountingHandler(map[string]string{
			"/":     page(`<p>` + longText + `</p><a href="/deep">link</a>`),
			"/deep": page("<p>" + longText + "</p>"),
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		s := newTestSpider(t, &fakeEmbedder{}, &recordingStore{}, WithMaxDepth(0))

		result, err := s.Ingest(context.Background(), srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 1 {
			t.Errorf("PageCount = %d, want 1", result.PageCount)
		}
		if hits := handler.hitCount("/deep"); hits != 0 {
			t.Errorf("/deep fetched %d times, want 0", hits)
		}
	})

	t.Run("fan-out capped per page", func(t *testing.T) {
		t.Parallel()

		var links strings.Builder
		pages := map[string]string{}
		for i := range 5 {
			path := fmt.Sprintf("/p%d", i)
			fmt.Fprintf(&links, `<a href="%s">l</a>`, path)
			pages[path] = page("<p>" + longText + "</p>")
		}
		pages["/"] = page(`<p>` + longText + `</p>` + links.String())

		handler := newCountingHandler(pages)
		srv := httptest.NewServer(handler)
		defer srv.Close()

		s := newTestSpider(t, &fakeEmbedder{}, &recordingStore{}, WithMaxLinksPerPage(2))

		result, err := s.Ingest(context.Background(), srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 3 {
			t.Errorf("PageCount = %d, want start page plus two links", result.PageCount)
		}
	})

	t.Run("page budget caps the crawl", func(t *testing.T) {
		t.Parallel()

		handler := newCountingHandler(map[string]string{
			"/":  page(`<p>` + longText + `</p><a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>`),
			"/a": page("<p>" + longText + "</p>"),
			"/b": page("<p>" + longText + "</p>"),
			"/c": page("<p>" + longText + "</p>"),
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		s := newTestSpider(t, &fakeEmbedder{}, &recordingStore{}, WithMaxPages(2))

		result, err := s.Ingest(context.Background(), srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 2 {
			t.Errorf("PageCount = %d, want 2", result.PageCount)
		}
	})

	t.Run("start URL recovers after transient failures", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			attempts++
			n := attempts
			mu.Unlock()
			if n < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, page("<p>"+longText+"</p>"))
		}))
		defer srv.Close()

		s := newTestSpider(t, &fakeEmbedder{}, &recordingStore{})

		result, err := s.Ingest(context.Background(), srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 1 {
			t.Errorf("PageCount = %d, want 1", result.PageCount)
		}
	})

	t.Run("unreachable start URL fails the run", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		s := newTestSpider(t, &fakeEmbedder{}, &recordingStore{})

		_, err := s.Ingest(context.Background(), srv.URL, "ns")
		if !errors.Is(err, ErrStartUnreachable) {
			t.Fatalf("Ingest() error = %v, want ErrStartUnreachable", err)
		}
	})

	t.Run("failing child page does not abort the crawl", func(t *testing.T) {
		t.Parallel()

		handler := newCountingHandler(map[string]string{
			"/": page(`<p>` + longText + `</p><a href="/gone">gone</a><a href="/ok">ok</a>`),
			// "/gone" is missing and 404s.
			"/ok": page("<p>" + longText + "</p>"),
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		s := newTestSpider(t, &fakeEmbedder{}, &recordingStore{})

		result, err := s.Ingest(context.Background(), srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 2 {
			t.Errorf("PageCount = %d, want 2", result.PageCount)
		}
	})

	t.Run("page below content floor stores no chunks", func(t *testing.T) {
		t.Parallel()

		handler := newCountingHandler(map[string]string{
			"/": page("<p>Tiny.</p>"),
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		embedder := &fakeEmbedder{}
		store := &recordingStore{}
		s := newTestSpider(t, embedder, store)

		result, err := s.Ingest(context.Background(), srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 1 {
			t.Errorf("PageCount = %d, want 1", result.PageCount)
		}
		if result.ChunkCount != 0 {
			t.Errorf("ChunkCount = %d, want 0", result.ChunkCount)
		}
		if embedder.batches != 0 {
			t.Errorf("embedder called %d times for empty chunk set, want 0", embedder.batches)
		}
	})

	t.Run("embedding failure keeps the crawl alive", func(t *testing.T) {
		t.Parallel()

		handler := newCountingHandler(map[string]string{
			"/":  page(`<p>` + longText + `</p><a href="/a">a</a>`),
			"/a": page("<p>" + longText + "</p>"),
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		embedder := &fakeEmbedder{err: errors.New("embedding backend down")}
		s := newTestSpider(t, embedder, &recordingStore{})

		result, err := s.Ingest(context.Background(), srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.PageCount != 2 {
			t.Errorf("PageCount = %d, want pages counted despite failed embedding", result.PageCount)
		}
		if result.ChunkCount != 0 {
			t.Errorf("ChunkCount = %d, want 0", result.ChunkCount)
		}
	})

	t.Run("cancelled context keeps partial results", func(t *testing.T) {
		t.Parallel()

		handler := newCountingHandler(map[string]string{
			"/": page(`<p>` + longText + `</p><a href="/a">a</a>`),
			"/a": page("<p>" + longText + "</p>"),
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := newTestSpider(t, &fakeEmbedder{}, &recordingStore{})

		result, err := s.Ingest(ctx, srv.URL, "ns")
		if err != nil {
			t.Fatalf("Ingest() error = %v, want partial result without error", err)
		}
		if result.PageCount != 0 {
			t.Errorf("PageCount = %d, want 0 for immediately cancelled run", result.PageCount)
		}
	})
}

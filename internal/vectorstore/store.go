package vectorstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/philippgille/chromem-go"

	"github.com/sitesage/sitesage/internal/model"
)

// collectionMetadata configures cosine similarity for new collections.
var collectionMetadata = map[string]string{
	"hnsw:space": "cosine",
}

// Store is a namespace-partitioned vector store backed by chromem.
// Vectors are supplied by the caller (chromem's own embedding functions
// are unused), which keeps the embedding service behind the pipeline's
// governed client.
type Store struct {
	db *chromem.DB
}

// Open opens or creates a persistent store under dir.
func Open(dir string) (*Store, error) {
	db, err := chromem.NewPersistentDB(filepath.Join(dir, "vectors"), false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewInMemory creates a store that lives only for the process. Used in
// tests and for one-shot runs where persistence is unwanted.
func NewInMemory() *Store {
	return &Store{db: chromem.NewDB()}
}

// Upsert stores one chunk vector with metadata and content under a
// namespace, creating the namespace collection on first write.
func (s *Store) Upsert(ctx context.Context, ns model.Namespace, id string, vector []float32, metadata map[string]string, content string) error {
	collection, err := s.db.GetOrCreateCollection(string(ns), collectionMetadata, nil)
	if err != nil {
		return fmt.Errorf("namespace %s: %w", ns, err)
	}

	if err := collection.Add(ctx,
		[]string{id},
		[][]float32{vector},
		[]map[string]string{metadata},
		[]string{content},
	); err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}

	return nil
}

// Query returns the topK nearest matches to the query vector within a
// namespace, best first. An absent or empty namespace yields no matches
// and no error; topK is clamped to the collection size because chromem
// rejects requests for more results than documents.
func (s *Store) Query(ctx context.Context, ns model.Namespace, vector []float32, topK int) ([]model.Match, error) {
	collection := s.db.GetCollection(string(ns), nil)
	if collection == nil {
		return nil, nil
	}

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query namespace %s: %w", ns, err)
	}

	matches := make([]model.Match, 0, len(results))
	for _, r := range results {
		match := model.Match{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
		}
		if r.Metadata != nil {
			match.SourceURL = r.Metadata["source_url"]
			match.SourceTitle = r.Metadata["source_title"]
		}
		matches = append(matches, match)
	}

	return matches, nil
}

// Count returns the number of vectors stored under a namespace.
// Zero means the namespace is absent or empty; either way, ingestion is
// required before it can answer questions.
func (s *Store) Count(ns model.Namespace) int {
	collection := s.db.GetCollection(string(ns), nil)
	if collection == nil {
		return 0
	}
	return collection.Count()
}

// NeedsIngestion reports whether a namespace has no stored vectors.
func (s *Store) NeedsIngestion(ns model.Namespace) bool {
	return s.Count(ns) == 0
}

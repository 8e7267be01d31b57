package model

// MinChunkChars is the minimum useful length of a chunk in characters.
// Chunks below this floor add no retrieval value and would pollute the
// index with fragments, so they are discarded before storage.
const MinChunkChars = 100

// Chunk is a bounded-size piece of extracted text, the unit of embedding
// and storage. Chunks are derived deterministically from a page's main
// content; the ordinal preserves their original order and is part of the
// storage identity.
type Chunk struct {
	// Text is the chunk content.
	Text string `json:"text"`

	// Ordinal is the zero-based position of the chunk within its page.
	Ordinal int `json:"ordinal"`

	// SourceURL is the URL of the page the chunk was extracted from.
	SourceURL string `json:"source_url"`

	// SourceTitle is the title of the source page, if any.
	SourceTitle string `json:"source_title,omitempty"`
}

// Match is a retrieval result from the vector store: a stored chunk with
// its similarity to the query vector.
type Match struct {
	// ID is the stored chunk identifier.
	ID string `json:"id"`

	// Content is the stored chunk text.
	Content string `json:"content"`

	// Similarity is the cosine similarity to the query, in [0, 1].
	Similarity float32 `json:"similarity"`

	// SourceURL is the URL of the page the chunk came from.
	SourceURL string `json:"source_url,omitempty"`

	// SourceTitle is the title of the source page, if any.
	SourceTitle string `json:"source_title,omitempty"`
}

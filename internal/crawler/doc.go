// Package crawler implements the bounded same-origin ingestion crawl:
// URL canonicalization, page-content extraction from parsed HTML, and the
// depth-bounded spider that orchestrates extraction, chunking, embedding,
// and vector storage per page.
package crawler

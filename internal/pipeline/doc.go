// Package pipeline orchestrates the top-level query flow for one
// (url, question) request: cache lookup, conditional ingestion, answer
// generation, and cache write-back. Steps execute sequentially over a
// shared query report and respect context cancellation; a batch processor
// runs the same pipeline against multiple URLs concurrently.
package pipeline

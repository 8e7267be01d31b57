// Package model defines the core data structures shared across the
// ingestion and answering pipeline: crawled page content, text chunks,
// namespace derivation, and the query report that accumulates results
// as pipeline steps execute.
package model

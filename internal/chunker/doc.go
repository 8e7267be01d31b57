// Package chunker splits extracted page text into bounded-size pieces
// suitable for embedding and vector storage. Two interchangeable policies
// are provided: sentence accumulation against a byte bound, and word
// accumulation against an estimated token budget. Chunks below a minimum
// content floor are discarded before storage.
package chunker

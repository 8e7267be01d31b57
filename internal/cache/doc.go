// Package cache provides the SQLite-backed answer cache. Computed answers
// are stored per (namespace, question) pair with a time-to-live; expired
// entries are treated as absent and lazily removed. The key is the exact
// question string, not a semantic match.
package cache

// Package vectorstore persists chunk embeddings in an embedded chromem
// vector database, partitioned by namespace. One chromem collection backs
// each namespace, so different ingested sites never interfere and the
// per-namespace vector count doubles as the "already ingested" signal.
package vectorstore

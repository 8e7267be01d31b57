// Package rag drives retrieval-augmented answering: it embeds a question,
// retrieves the nearest stored chunks within a namespace, assembles a
// bounded-size context, and generates a grounded answer. When retrieval
// yields no usable context the fixed no-information response is returned
// without ever calling the generation service.
package rag

// Package main provides the entry point for the sitesage CLI.
//
// sitesage answers natural-language questions about websites. It crawls
// a site, indexes its content into a local vector store, and answers
// questions against the indexed content using the Gemini API.
//
// Usage:
//
//	sitesage ask https://example.com -q "What does this company sell?"
//	sitesage serve --addr :8080
//
// See --help for all available options.
package main

// main is the entry point for sitesage.
func main() {
	Execute()
}

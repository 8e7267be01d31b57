package model

// PageContent holds everything extracted from a single fetched page.
// It is created once per successfully fetched page and never mutated
// after extraction.
type PageContent struct {
	// URL is the canonical URL the page was fetched from.
	URL string `json:"url"`

	// Title is the page title from the <title> tag, verbatim.
	Title string `json:"title,omitempty"`

	// MetaDescription is the content of <meta name="description">, verbatim.
	MetaDescription string `json:"meta_description,omitempty"`

	// MainContent is the deduplicated text blocks of the page joined with
	// paragraph separators, in document order with priority containers first.
	MainContent string `json:"main_content"`

	// StructuredData is the merged key/value mapping from all structured
	// data blocks (JSON-LD) on the page. Later blocks override earlier
	// ones on key collision.
	StructuredData map[string]string `json:"structured_data,omitempty"`

	// InternalLinks are canonical same-origin URLs discovered on the page.
	InternalLinks []string `json:"internal_links,omitempty"`
}

// CrawlTask is a unit of pending crawl work: a URL and the depth at which
// it was discovered. Tasks are ephemeral; they are created when a link is
// found and consumed when the URL is visited or skipped.
type CrawlTask struct {
	// URL is the canonical URL to fetch.
	URL string

	// Depth is the distance from the start URL. The start URL is depth 0.
	Depth int
}

package crawler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Length floors for heuristic noise filtering. These discriminate
// navigation bullets and widget fragments from real content; dropping a
// short-but-real block is acceptable, letting navigation noise into the
// index is the failure mode being guarded against.
const (
	// listItemFloor is the minimum text length for a list item block.
	listItemFloor = 30

	// freeTextFloor is the minimum text length for a leftover free text
	// node outside any recognized content element.
	freeTextFloor = 20
)

// chromeElements are non-content elements removed from the tree before
// text collection so they never contribute text blocks.
var chromeElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"iframe": true, "svg": true, "img": true, "picture": true,
	"video": true, "audio": true, "canvas": true, "object": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "button": true, "select": true, "input": true,
}

// contentHint matches id/class values that mark content-like regions.
var contentHint = regexp.MustCompile(`(?i)\b(content|article|post|main|body-?text)\b`)

// whitespaceRun collapses consecutive whitespace, newlines, and tabs.
var whitespaceRun = regexp.MustCompile(`\s+`)

// ExtractResult is what the extractor pulls out of one parsed document.
// URL and internal links are added by the caller, which owns the base URL
// needed to canonicalize them.
type ExtractResult struct {
	// Title is the page title, verbatim.
	Title string

	// MetaDescription is the meta description content, verbatim.
	MetaDescription string

	// StructuredData is the merged mapping from all JSON-LD blocks on the
	// page, later blocks overriding earlier ones on key collision.
	StructuredData map[string]string

	// Blocks are the deduplicated text blocks in insertion order:
	// priority containers first, then headings and paragraphs, then long
	// list items, then remaining free text.
	Blocks []string

	// RawLinks are the anchor hrefs as found in the document, not yet
	// canonicalized.
	RawLinks []string
}

// MainContent joins the deduplicated blocks with a paragraph separator,
// in insertion order.
func (r *ExtractResult) MainContent() string {
	return strings.Join(r.Blocks, "\n\n")
}

// Extractor turns a parsed HTML document into deduplicated text blocks
// plus structured metadata.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger falls back to
// slog.Default().
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract runs the extraction algorithm over a parsed document:
// capture title/meta/structured data and links, remove chrome elements,
// then collect text blocks priority-first with exact-string
// deduplication. Whitespace is normalized before dedup insertion.
func (e *Extractor) Extract(doc *html.Node) *ExtractResult {
	result := &ExtractResult{
		StructuredData: make(map[string]string),
	}

	e.collectMetadata(doc, result)
	pruneChrome(doc)

	seen := make(map[string]bool)
	add := func(text string) {
		text = normalizeWhitespace(text)
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		result.Blocks = append(result.Blocks, text)
	}

	// consumed marks elements whose subtree text was already collected,
	// so later passes only see what genuinely remains.
	consumed := make(map[*html.Node]bool)

	// Priority containers first: their text leads the assembled content,
	// biasing retrieval context toward substantive body text over chrome.
	walkElements(doc, consumed, func(n *html.Node) bool {
		if isPriorityContainer(n) {
			add(subtreeText(n))
			consumed[n] = true
			return false
		}
		return true
	})

	// Headings and paragraphs.
	walkElements(doc, consumed, func(n *html.Node) bool {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6", "p", "blockquote", "pre", "td":
			add(subtreeText(n))
			consumed[n] = true
			return false
		}
		return true
	})

	// List items above the length floor; short ones are navigation.
	walkElements(doc, consumed, func(n *html.Node) bool {
		if n.Data == "li" {
			if text := normalizeWhitespace(subtreeText(n)); len(text) > listItemFloor {
				add(text)
			}
			consumed[n] = true
			return false
		}
		return true
	})

	// Remaining free text nodes above the smaller floor.
	var walkText func(*html.Node)
	walkText = func(n *html.Node) {
		if consumed[n] {
			return
		}
		if n.Type == html.TextNode {
			if text := normalizeWhitespace(n.Data); len(text) > freeTextFloor {
				add(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkText(c)
		}
	}
	walkText(doc)

	return result
}

// collectMetadata captures title, meta description, structured data
// blocks, and anchor hrefs in one pass over the intact tree. It runs
// before chrome pruning because JSON-LD lives in script elements.
func (e *Extractor) collectMetadata(doc *html.Node, result *ExtractResult) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				if strings.EqualFold(getAttr(n, "name"), "description") {
					if content := getAttr(n, "content"); content != "" {
						result.MetaDescription = content
					}
				}
			case "script":
				if strings.EqualFold(getAttr(n, "type"), "application/ld+json") {
					e.mergeStructuredBlock(n, result.StructuredData)
				}
			case "a":
				if href := getAttr(n, "href"); href != "" {
					result.RawLinks = append(result.RawLinks, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

// mergeStructuredBlock parses one JSON-LD script body and folds its
// top-level keys into the merged mapping, later blocks overriding earlier
// ones. A malformed block is logged and skipped, never fatal: structured
// data is enrichment, not a prerequisite for ingesting the page.
func (e *Extractor) mergeStructuredBlock(n *html.Node, into map[string]string) {
	var raw strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			raw.WriteString(c.Data)
		}
	}
	body := strings.TrimSpace(raw.String())
	if body == "" {
		return
	}

	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		e.logger.Debug("skipping malformed structured data block", "error", err)
		return
	}

	// Top-level arrays hold multiple entities; fold each in document
	// order as an explicit reduce so override order stays deterministic.
	switch v := parsed.(type) {
	case map[string]any:
		foldObject(v, into)
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				foldObject(obj, into)
			}
		}
	}
}

// foldObject writes one object's keys into the merged mapping.
// Non-string values keep their JSON encoding.
func foldObject(obj map[string]any, into map[string]string) {
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			into[k] = val
		case float64, bool:
			into[k] = fmt.Sprintf("%v", val)
		default:
			if encoded, err := json.Marshal(val); err == nil {
				into[k] = string(encoded)
			}
		}
	}
}

// pruneChrome detaches non-content elements from the tree so nothing
// below them can contribute text blocks.
func pruneChrome(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && chromeElements[c.Data] {
			n.RemoveChild(c)
			continue
		}
		pruneChrome(c)
	}
}

// isPriorityContainer reports whether an element is an article/main/
// content-like region.
func isPriorityContainer(n *html.Node) bool {
	switch n.Data {
	case "article", "main":
		return true
	}
	return contentHint.MatchString(getAttr(n, "id")) || contentHint.MatchString(getAttr(n, "class"))
}

// walkElements visits element nodes in document order, skipping subtrees
// already consumed by an earlier pass. The visit function returns false
// to stop descending into a node's children, which keeps a matched
// container's text from being re-collected piecemeal in the same pass.
func walkElements(n *html.Node, consumed map[*html.Node]bool, visit func(*html.Node) bool) {
	if consumed[n] {
		return
	}
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, consumed, visit)
	}
}

// subtreeText concatenates all text nodes below n in document order.
func subtreeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// normalizeWhitespace collapses consecutive whitespace to single spaces
// and trims the ends.
func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

package crawler

import (
	"net/url"
	"path"
	"strings"
)

// skipSchemes are link scheme prefixes that can never yield a crawlable
// page. Checked before parsing because some of them (javascript:) are not
// even valid URLs.
var skipSchemes = []string{
	"javascript:", "mailto:", "tel:", "data:", "ftp:", "file:",
}

// skipExtensions are path extensions for non-content targets: documents,
// media, styles, scripts, archives. Pages behind these never contribute
// crawlable HTML.
var skipExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".csv": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".bmp": true,
	".css": true, ".js": true, ".mjs": true, ".json": true, ".xml": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

// Normalize canonicalizes a raw link relative to a base URL.
// It strips fragment and query components, resolves relative references,
// and rejects non-content extensions, non-http(s) schemes, and any result
// whose host differs from the base host: the crawl is strictly
// same-origin. Malformed input yields ok=false, never a panic.
//
// Normalization is idempotent: feeding an already-normalized URL back in
// against its own host returns the same string.
func Normalize(base *url.URL, raw string) (string, bool) {
	if base == nil || base.Host == "" {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return "", false
	}
	lower := strings.ToLower(raw)
	for _, scheme := range skipSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	// Fragments never change content and queries are dropped so the same
	// page cannot enter the visited set under multiple spellings.
	u.Fragment = ""
	u.RawQuery = ""

	resolved := base.ResolveReference(u)

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(resolved.Host, base.Host) {
		return "", false
	}

	if ext := strings.ToLower(path.Ext(resolved.Path)); skipExtensions[ext] {
		return "", false
	}

	resolved.Scheme = strings.ToLower(resolved.Scheme)
	resolved.Host = strings.ToLower(resolved.Host)
	if resolved.Path == "" {
		resolved.Path = "/"
	}

	return resolved.String(), true
}

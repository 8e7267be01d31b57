package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// HTTP headers commonly carrying credentials
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,

	// Service credentials
	"api_key":        true,
	"apikey":         true,
	"api-key":        true,
	"gemini_api_key": true,
	"token":          true,
	"access_token":   true,
	"secret":         true,
	"password":       true,
}

// sensitivePatterns matches values that look like credentials regardless
// of the attribute key.
var sensitivePatterns = []*regexp.Regexp{
	// Google API keys
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),

	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SanitizingHandler wraps an slog.Handler and masks credential-like
// attribute values before passing records on.
//
// Design decision: a handler wrapper rather than a custom logger because
// it composes with any underlying handler (text, JSON) and with every
// component that accepts a plain *slog.Logger.
type SanitizingHandler struct {
	handler slog.Handler
}

// NewSanitizingHandler creates a SanitizingHandler wrapping the given
// handler. If handler is nil, slog.Default().Handler() is used.
func NewSanitizingHandler(handler slog.Handler) *SanitizingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SanitizingHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and delegates to the
// underlying handler.
func (h *SanitizingHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added,
// sanitized first.
func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SanitizingHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func (h *SanitizingHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}

	return a
}

// containsSensitiveKeyword checks if the key contains a credential-related
// keyword. The bare "key" keyword is intentionally excluded because of
// false positives like "cache_key" or "primary_key"; the specific forms
// are covered by sensitiveKeys.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range []string{"password", "secret", "token", "auth", "credential"} {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches any credential pattern.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewLogger creates a *slog.Logger with credential sanitization writing
// text output to w. Verbose selects Debug level; otherwise Warn.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSanitizingHandler(textHandler))
}

// NewJSONLogger creates a *slog.Logger with credential sanitization and
// JSON output, for serve mode where logs feed an aggregator.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSanitizingHandler(jsonHandler))
}

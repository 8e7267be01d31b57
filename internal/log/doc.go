// Package log provides logging with automatic sanitization of credentials,
// built on top of the standard slog package.
//
// sitesage handles API keys for external AI services and forwards arbitrary
// HTTP headers from per-site configuration, both of which can easily end up
// in log attributes. The SanitizingHandler masks such values before they
// reach the underlying handler, so debug logs stay safe to share:
//   - API keys and auth headers (Authorization, X-Api-Key, Cookie)
//   - Google API key values detected by pattern
//   - Bearer/JWT token values detected by pattern
//
// Usage:
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log

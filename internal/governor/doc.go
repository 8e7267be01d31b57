// Package governor enforces rate and backoff discipline around calls to
// external AI services. A Governor paces calls with a minimum inter-call
// delay and a sliding-window cap, and absorbs rate-limit signals from the
// remote service by waiting out a fixed cool-down and retrying, so callers
// only ever see logical errors or exhausted-retry degradation.
package governor

// Package gemini wraps the Google generative AI APIs behind the small
// embedding and generation interfaces the pipeline consumes. All calls
// run under the shared call governor, so rate limits from the service are
// absorbed by pacing and retry instead of surfacing to callers.
package gemini

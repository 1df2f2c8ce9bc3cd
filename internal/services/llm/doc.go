// Package llm talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter unless configured otherwise). The enrich package uses it to
// paraphrase catalog text and suggest tags; preflight uses HealthCheck.
//
// HTTP 408, 429 and 5xx answers, network timeouts and empty completions are
// retried with retry-go backoff, honoring Retry-After. Failures carry the
// services error markers.
package llm

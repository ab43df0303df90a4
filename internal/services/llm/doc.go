// Package llm provides an OpenRouter-compatible chat client used by the content
// optimizer and the schedule suggestion generator.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, referer, title, and
// timeout. When unconfigured, callers fall back to publishing unoptimized
// content.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON response.
// Client.HealthCheck: verify API key and model availability.
// DecodeJSON: tolerant decoder for model output (code fences, prose wrappers).
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 3 attempts by
// default). Retry-After headers are honoured. Context cancellation aborts
// retries immediately.
package llm

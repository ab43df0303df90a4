// Package services defines shared utilities consumed by the dispatch loop and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp schedule IDs, platform names, tick IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent categories (configuration vs transient vs persistence).
//
// Use these helpers when wiring new sources, optimizers, or publish adapters
// so operational behaviour (error handling, observability, retries) stays
// uniform across the loop.
package services

// Package main hosts the Postpilot CLI entrypoint and command graph.
//
// Daemon lifecycle, ticks, log tailing and test notifications go over the
// JSON-RPC socket. Schedules, platforms, records, counters and content drafts
// are managed directly against the configured storage backend, so they work
// whether or not the daemon is running.
package main

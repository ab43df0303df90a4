// Package daemon coordinates the long-running Postpilot process.
//
// It wires configuration, storage repositories, the dispatch loop, and the
// optional HTTP status API into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes read helpers for schedules,
// records, and counters, runs on-demand ticks, and sends test notifications.
//
// Keep orchestration logic here: publishing rules live in dispatch while the
// daemon focuses on startup, shutdown, and high level coordination.
package daemon

// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// The server registers a single "Postpilot" service with Start, Stop, Status,
// Tick, TestNotification, and LogTail methods. Request and response DTOs live
// in types.go; status payloads reuse the api package so the HTTP API and the
// CLI render the same shapes.
package ipc

// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates dispatch reports, schedules, publish records, and
// counters into transport-friendly DTOs so the CLI and other consumers can
// render them without coupling to internal types.
//
// # Converters
//
// FromTickReport and FromDispatchStatus flatten the loop snapshot. Skip
// reasons become plain string keys.
//
// FromSchedule attaches the next fire time of enabled slots.
//
// FromCounters orders counters newest date first.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds in
// UTC and are omitted when zero.
package api

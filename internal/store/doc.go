// Package store persists schedules, platform registry entries, daily
// counters, publish records, content items and dispatch claims.
//
// All records are JSON documents addressed by slash-separated keys behind the
// Storage interface, so the dispatch loop runs unchanged over the in-memory
// backend used by tests, the default SQLite file, or shared Redis/Postgres
// backends. Typed repositories layer defaults, ordering and the atomic
// operations (counter increment-if-below, dispatch claims) on top.
//
// Key layout:
//
//	schedule/<id>
//	platform/<id>
//	settings/<id>
//	counter/<platform>/<YYYY-MM-DD>
//	record/<id>
//	content/<id>
//	dispatch/<YYYY-MM-DD>/<scheduleId>
package store

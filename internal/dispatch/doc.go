// Package dispatch runs the timer-driven publishing loop.
//
// Every tick loads all weekly schedules, keeps the ones due within the
// tolerance window of the current wall-clock minute, and runs each through the
// registry gates (known, enabled, credentialed, settings enabled, daily cap).
// An eligible schedule claims its dispatch key for the day, fetches a
// candidate from the content sources, optimizes it for the platform, and
// publishes through the adapter set. The daily slot is reserved with an atomic
// increment before the adapter runs and refunded when the attempt fails, so
// failed attempts never consume quota and concurrent publishers cannot exceed
// the cap.
//
// One Service instance owns one loop. Ticks are single-flight within a process
// and optionally across processes through a coordination.Locker.
package dispatch

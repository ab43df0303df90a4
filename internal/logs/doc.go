// Package logs tails the daemon log file for `postpilot logs`.
//
// Reads are bounded by a line limit, resume from byte offsets, and can wait
// for new lines in follow mode. An optional substring match narrows output to
// one platform, schedule, or tick.
package logs

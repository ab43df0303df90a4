// Package preflight provides readiness checks for the filesystem paths and
// external services Postpilot depends on.
//
// The CLI "postpilot status" command runs RunAll and renders one line per
// result. Checks for disabled features report Skipped instead of failing.
package preflight

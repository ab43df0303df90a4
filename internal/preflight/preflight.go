package preflight

import (
	"context"

	"postpilot/internal/config"
)

// Result reports the outcome of a single preflight check. Skipped marks
// checks for features that are turned off.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// Report groups check results the way status output renders them.
type Report struct {
	// System holds directory, storage, coordination and optimizer checks.
	System []Result
	// Platforms holds one credential line per platform.
	Platforms []Result
}

// All returns system results followed by platform results.
func (r Report) All() []Result {
	out := make([]Result, 0, len(r.System)+len(r.Platforms))
	out = append(out, r.System...)
	return append(out, r.Platforms...)
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) Report {
	if cfg == nil {
		return Report{}
	}
	return Report{
		System: []Result{
			CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
			CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
			CheckStorage(ctx, cfg),
			CheckCoordination(ctx, cfg.Coordination),
			CheckOptimizer(ctx, cfg.Optimizer),
		},
		Platforms: CheckPlatformCredentials(cfg),
	}
}

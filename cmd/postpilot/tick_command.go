package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"postpilot/internal/api"
	"postpilot/internal/coordination"
	"postpilot/internal/daemonrun"
	"postpilot/internal/dispatch"
	"postpilot/internal/ipc"
	"postpilot/internal/notifications"
	"postpilot/internal/store"
)

func newTickCommand(ctx *commandContext) *cobra.Command {
	var local bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one dispatch pass now",
		Long: "Run one dispatch pass now. The daemon runs the pass when it is reachable;\n" +
			"otherwise, or with --local, the pass runs in this process against the configured storage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var (
				summary api.TickSummary
				skipped string
			)
			if !local {
				socket := ctx.socketPath()
				client, err := ipc.Dial(socket)
				switch {
				case err == nil:
					defer client.Close()
					resp, err := client.Tick()
					if err != nil {
						return err
					}
					summary, skipped = resp.Tick, tickSkipMessage(resp)
				case isDaemonUnavailable(err):
					fmt.Fprintln(cmd.ErrOrStderr(), "Daemon not running; running tick locally")
					local = true
				default:
					return wrapDialError(err, socket)
				}
			}
			if local {
				report, err := runLocalTick(cmd.Context(), ctx)
				switch {
				case errors.Is(err, dispatch.ErrTickInProgress), errors.Is(err, coordination.ErrLockHeld):
					skipped = err.Error()
				case err != nil:
					return err
				default:
					summary = api.FromTickReport(report)
				}
			}

			if skipped != "" {
				fmt.Fprintf(out, "Tick skipped: %s\n", skipped)
				return nil
			}
			if asJSON {
				return writeJSON(cmd, summary)
			}
			renderTickSummary(out, summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Run the pass in this process instead of the daemon")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the tick report as JSON")
	return cmd
}

func tickSkipMessage(resp *ipc.TickResponse) string {
	if resp == nil || !resp.Skipped {
		return ""
	}
	if resp.Message != "" {
		return resp.Message
	}
	return "another tick is running"
}

func runLocalTick(ctx context.Context, cmdCtx *commandContext) (dispatch.TickReport, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return dispatch.TickReport{}, err
	}
	logger := cmdCtx.cliLogger()
	var report dispatch.TickReport
	err = cmdCtx.withRepos(ctx, func(repos *store.Repos) error {
		if _, err := repos.Platforms.Sync(ctx, cfg, repos.Settings); err != nil {
			return fmt.Errorf("sync platform registry: %w", err)
		}
		service, closeFn, err := daemonrun.BuildDispatcher(ctx, cfg, repos, notifications.NewService(cfg), logger)
		if err != nil {
			return err
		}
		defer closeFn()
		report, err = service.Tick(ctx)
		return err
	})
	return report, err
}

func renderTickSummary(out io.Writer, summary api.TickSummary) {
	fmt.Fprintf(out, "Tick %s finished in %dms\n", summary.TickID, summary.DurationMillis)
	rows := [][]string{
		{"Evaluated", fmt.Sprint(summary.Evaluated)},
		{"Due", fmt.Sprint(summary.Due)},
		{"Attempted", fmt.Sprint(summary.Attempted)},
		{"Published", fmt.Sprint(summary.Published)},
		{"Failed", fmt.Sprint(summary.Failed)},
	}
	if summary.PersistErrors > 0 {
		rows = append(rows, []string{"Persist errors", fmt.Sprint(summary.PersistErrors)})
	}
	if summary.Pruned > 0 {
		rows = append(rows, []string{"Pruned", fmt.Sprint(summary.Pruned)})
	}
	reasons := make([]string, 0, len(summary.Skipped))
	for reason := range summary.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		rows = append(rows, []string{"Skipped (" + reason + ")", fmt.Sprint(summary.Skipped[reason])})
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	for _, msg := range summary.Errors {
		fmt.Fprintf(out, "error: %s\n", msg)
	}
}

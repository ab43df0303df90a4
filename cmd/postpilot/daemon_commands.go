package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"postpilot/internal/api"
	"postpilot/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the postpilot daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startDiagnostic),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the postpilot daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping dispatch loop...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dispatch, and configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			renderStatusLines(stdout, "System Status", statusResp.SystemChecks, colorize)
			fmt.Fprintln(stdout)
			renderStatusLines(stdout, "Platforms", statusResp.Platforms, colorize)
			fmt.Fprintln(stdout)
			renderStatusLines(stdout, "Dispatch", dispatchLines(statusResp.Dispatch, statusResp.Running, statusResp.Schedules, time.Now()), colorize)
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")

	var restartDiagnostic bool
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the postpilot daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, restartDiagnostic),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	restartCmd.Flags().BoolVar(&restartDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// dispatchLines summarizes the loop state reported by the daemon.
func dispatchLines(status api.DispatchStatus, daemonRunning bool, schedules api.StatusLine, now time.Time) []api.StatusLine {
	lines := []api.StatusLine{schedules}
	if !daemonRunning {
		return append(lines, api.StatusLine{Label: "Timer", Severity: api.SeverityInfo, Detail: "Inactive (daemon not running)"})
	}

	timer := api.StatusLine{Label: "Timer", Severity: api.SeverityOK, Detail: fmt.Sprintf("Every %s", time.Duration(status.TickIntervalSeconds)*time.Second)}
	if !status.Running {
		timer = api.StatusLine{Label: "Timer", Severity: api.SeverityWarn, Detail: "Stopped"}
	}
	lines = append(lines, timer)

	if next := parseAPITime(status.NextTick); !next.IsZero() {
		lines = append(lines, api.StatusLine{Label: "Next tick", Severity: api.SeverityInfo, Detail: sinceTime(next, now)})
	}
	if last := status.LastTick; last != nil {
		detail := fmt.Sprintf("%s: %d due, %d published, %d failed, %d skipped",
			sinceTime(parseAPITime(last.FinishedAt), now), last.Due, last.Published, last.Failed, skippedTotal(last.Skipped))
		severity := api.SeverityOK
		if last.Failed > 0 || last.PersistErrors > 0 {
			severity = api.SeverityWarn
		}
		lines = append(lines, api.StatusLine{Label: "Last tick", Severity: severity, Detail: detail})
	}
	if strings.TrimSpace(status.LastError) != "" {
		lines = append(lines, api.StatusLine{Label: "Last error", Severity: api.SeverityError, Detail: status.LastError})
	}
	lines = append(lines, api.StatusLine{
		Label:    "Ticks",
		Severity: api.SeverityInfo,
		Detail:   fmt.Sprintf("%d run, %d skipped", status.TicksRun, status.TicksSkipped),
	})
	return lines
}

func skippedTotal(skipped map[string]int) int {
	total := 0
	for _, n := range skipped {
		total += n
	}
	return total
}

func parseAPITime(value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{Diagnostic: diagnostic, ConfigPath: ctx.configPath()}
	if ctx.logLevelFlag != nil {
		opts.LogLevel = strings.TrimSpace(*ctx.logLevelFlag)
	}
	return opts
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"postpilot/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var match string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				req := ipc.LogTailRequest{Offset: -1, Limit: lines, Match: strings.TrimSpace(match)}
				for {
					resp, err := client.LogTail(req)
					if err != nil {
						return err
					}
					for _, line := range resp.Lines {
						fmt.Fprintln(out, line)
					}
					if !follow {
						return nil
					}
					req = ipc.LogTailRequest{
						Offset:     resp.Offset,
						Follow:     true,
						WaitMillis: int((2 * time.Second).Milliseconds()),
						Match:      req.Match,
					}
					select {
					case <-cmd.Context().Done():
						return nil
					default:
					}
				}
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().StringVar(&match, "match", "", "Only show lines containing this text")
	return cmd
}

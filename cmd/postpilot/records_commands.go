package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"postpilot/internal/api"
	"postpilot/internal/content"
	"postpilot/internal/daemonrun"
	"postpilot/internal/notifications"
	"postpilot/internal/platform"
	"postpilot/internal/store"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var platformFlag, statusFlag, contentFlag, dateFlag string
	var limit int
	var asJSON bool

	recordsCmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"history"},
		Short:   "Show publish records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.RecordFilter{
				ContentID: strings.TrimSpace(contentFlag),
				Date:      strings.TrimSpace(dateFlag),
				Limit:     limit,
			}
			if id, err := optionalPlatform(platformFlag); err != nil {
				return err
			} else if id != "" {
				filter.Platform = string(id)
			}
			if value := strings.ToLower(strings.TrimSpace(statusFlag)); value != "" {
				switch status := content.RecordStatus(value); status {
				case content.RecordPending, content.RecordPublished, content.RecordFailed:
					filter.Status = status
				default:
					return fmt.Errorf("invalid status %q (want pending, published, or failed)", statusFlag)
				}
			}
			if filter.Date != "" {
				if _, err := time.Parse(store.DateLayout, filter.Date); err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", dateFlag)
				}
			}

			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				items, err := repos.Records.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.RecordListResponse{Records: api.FromRecords(items)})
				}
				now := time.Now()
				rows := make([][]string, 0, len(items))
				for _, record := range items {
					detail := record.PublishedURL
					if record.Status == content.RecordFailed {
						detail = record.ErrorMessage
						if record.ErrorCategory != "" {
							detail = record.ErrorCategory + ": " + detail
						}
					}
					rows = append(rows, []string{
						sinceTime(record.PublishDate, now),
						platform.ID(record.Platform).DisplayName(),
						string(record.Status),
						shortID(record.ContentID),
						fmt.Sprint(record.RetryCount),
						truncate(dash(detail), 60),
					})
				}
				printTable(cmd.OutOrStdout(), "No publish records",
					[]string{"When", "Platform", "Status", "Content", "Retries", "Detail"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
				return nil
			})
		},
	}
	recordsCmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Filter by platform")
	recordsCmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by status (pending, published, failed)")
	recordsCmd.Flags().StringVar(&contentFlag, "content", "", "Filter by content id")
	recordsCmd.Flags().StringVar(&dateFlag, "date", "", "Filter by publish date (YYYY-MM-DD)")
	recordsCmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum records to show (0 for all)")
	recordsCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return recordsCmd
}

func newCountersCommand(ctx *commandContext) *cobra.Command {
	countersCmd := &cobra.Command{
		Use:   "counters",
		Short: "Inspect daily publication counters",
	}
	countersCmd.AddCommand(newCountersListCommand(ctx), newCountersPruneCommand(ctx))
	return countersCmd
}

func newCountersListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored daily counters, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				items, err := repos.Counters.List(cmd.Context())
				if err != nil {
					return err
				}
				counters := api.FromCounters(items)
				if asJSON {
					return writeJSON(cmd, api.CounterListResponse{Counters: counters})
				}
				caps := make(map[string]int, len(platform.All()))
				settings, err := repos.Settings.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range settings {
					caps[string(s.PlatformID)] = s.PostsPerDay
				}
				rows := make([][]string, 0, len(counters))
				for _, counter := range counters {
					rows = append(rows, []string{
						counter.Date,
						platform.ID(counter.Platform).DisplayName(),
						fmt.Sprintf("%d/%d", counter.Count, caps[counter.Platform]),
					})
				}
				printTable(cmd.OutOrStdout(), "No counters recorded",
					[]string{"Date", "Platform", "Published"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCountersPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop counters and dispatch claims past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Dispatch.CounterRetentionDays <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Counter retention disabled (dispatch.counter_retention_days = 0)")
				return nil
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				service, closeFn, err := daemonrun.BuildDispatcher(cmd.Context(), cfg, repos, notifications.NewService(cfg), ctx.cliLogger())
				if err != nil {
					return err
				}
				defer closeFn()
				removed, err := service.Prune(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries older than %d days\n", removed, cfg.Dispatch.CounterRetentionDays)
				return nil
			})
		},
	}
}

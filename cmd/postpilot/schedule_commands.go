package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"postpilot/internal/api"
	"postpilot/internal/optimizer"
	"postpilot/internal/platform"
	"postpilot/internal/schedule"
	"postpilot/internal/store"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"schedules"},
		Short:   "Manage weekly publishing slots",
	}
	scheduleCmd.AddCommand(
		newScheduleListCommand(ctx),
		newScheduleAddCommand(ctx),
		newScheduleUpdateCommand(ctx),
		newScheduleRemoveCommand(ctx),
		newScheduleToggleCommand(ctx, true),
		newScheduleToggleCommand(ctx, false),
		newScheduleNextCommand(ctx),
		newScheduleSuggestCommand(ctx),
	)
	return scheduleCmd
}

func newScheduleListCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List weekly slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := optionalPlatform(platformFlag)
			if err != nil {
				return err
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				items, err := repos.Schedules.List(cmd.Context())
				if err != nil {
					return err
				}
				items = filterSchedules(items, filter)
				sortSchedules(items)
				now, err := dispatchNow(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.ScheduleListResponse{Schedules: api.FromSchedules(items, now)})
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					next := "-"
					if item.Enabled {
						if at, err := item.NextFire(now); err == nil {
							next = relativeTime(at, now)
						}
					}
					origin := "manual"
					if item.CreatedByAI {
						origin = "ai"
					}
					rows = append(rows, []string{
						shortID(item.ID),
						item.PlatformID.DisplayName(),
						string(item.DayOfWeek),
						item.Time,
						yesNo(item.Enabled),
						origin,
						next,
					})
				}
				printTable(cmd.OutOrStdout(), "No schedules configured",
					[]string{"ID", "Platform", "Day", "Time", "Enabled", "Origin", "Next"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Only show slots for this platform")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newScheduleAddCommand(ctx *commandContext) *cobra.Command {
	var platformFlag, dayFlag, timeFlag string
	var disabled bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a weekly slot",
		Example: "  postpilot schedule add --platform devTo --day monday --time 09:00\n" +
			"  postpilot schedule add -p twitter -d fri -t 17:30",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := platform.Parse(platformFlag)
			if err != nil {
				return err
			}
			day, err := schedule.ParseWeekday(dayFlag)
			if err != nil {
				return err
			}
			clock, err := schedule.NormalizeClock(timeFlag)
			if err != nil {
				return err
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				created, err := repos.Schedules.Add(cmd.Context(), schedule.WeeklySchedule{
					PlatformID: id,
					DayOfWeek:  day,
					Time:       clock,
					Enabled:    !disabled,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added schedule %s (%s %s %s)\n", created.ID, id.DisplayName(), day, clock)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Platform id (hashnode, devTo, twitter, linkedin, instagram, youtube)")
	cmd.Flags().StringVarP(&dayFlag, "day", "d", "", "Day of week")
	cmd.Flags().StringVarP(&timeFlag, "time", "t", "", "Time of day as HH:MM")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the slot disabled")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("day")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func newScheduleUpdateCommand(ctx *commandContext) *cobra.Command {
	var platformFlag, dayFlag, timeFlag string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a slot's platform, day, or time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if platformFlag == "" && dayFlag == "" && timeFlag == "" {
				return errors.New("nothing to update: pass --platform, --day, or --time")
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				item, err := resolveSchedule(cmd.Context(), repos, args[0])
				if err != nil {
					return err
				}
				if platformFlag != "" {
					if item.PlatformID, err = platform.Parse(platformFlag); err != nil {
						return err
					}
				}
				if dayFlag != "" {
					if item.DayOfWeek, err = schedule.ParseWeekday(dayFlag); err != nil {
						return err
					}
				}
				if timeFlag != "" {
					if item.Time, err = schedule.NormalizeClock(timeFlag); err != nil {
						return err
					}
				}
				updated, err := repos.Schedules.Update(cmd.Context(), item)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated schedule %s (%s %s %s)\n",
					updated.ID, updated.PlatformID.DisplayName(), updated.DayOfWeek, updated.Time)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "New platform id")
	cmd.Flags().StringVarP(&dayFlag, "day", "d", "", "New day of week")
	cmd.Flags().StringVarP(&timeFlag, "time", "t", "", "New time of day as HH:MM")
	return cmd
}

func newScheduleRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a slot",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				item, err := resolveSchedule(cmd.Context(), repos, args[0])
				if err != nil {
					return err
				}
				if err := repos.Schedules.Delete(cmd.Context(), item.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted schedule %s\n", item.ID)
				return nil
			})
		},
	}
}

func newScheduleToggleCommand(ctx *commandContext, enable bool) *cobra.Command {
	use, verb := "disable", "Disabled"
	if enable {
		use, verb = "enable", "Enabled"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				item, err := resolveSchedule(cmd.Context(), repos, args[0])
				if err != nil {
					return err
				}
				if _, err := repos.Schedules.SetEnabled(cmd.Context(), item.ID, enable); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schedule %s\n", verb, item.ID)
				return nil
			})
		},
	}
}

func newScheduleNextCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string
	var limit int
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show upcoming slot openings",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := optionalPlatform(platformFlag)
			if err != nil {
				return err
			}
			now, err := dispatchNow(ctx)
			if err != nil {
				return err
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				items, err := repos.Schedules.List(cmd.Context())
				if err != nil {
					return err
				}
				fires := upcomingFires(filterSchedules(items, filter), now, limit)
				rows := make([][]string, 0, len(fires))
				for _, fire := range fires {
					rows = append(rows, []string{
						fire.at.Format(displayTimeFormat),
						sinceTime(fire.at, now),
						fire.schedule.PlatformID.DisplayName(),
						shortID(fire.schedule.ID),
					})
				}
				printTable(cmd.OutOrStdout(), "No enabled schedules",
					[]string{"When", "In", "Platform", "Schedule"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Only show slots for this platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of openings to show")
	return cmd
}

func newScheduleSuggestCommand(ctx *commandContext) *cobra.Command {
	var platformFlags []string
	var perWeek int
	var apply bool
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Ask the AI backend for weekly slots",
		Long: "Ask the configured optimizer backend to propose weekly slots for each enabled\n" +
			"platform (or the platforms given with --platform). With --apply the proposals\n" +
			"are stored as AI-created schedules.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if perWeek <= 0 {
				return errors.New("--per-week must be positive")
			}
			completer, err := optimizer.NewCompleter(cmd.Context(), cfg.Optimizer)
			if err != nil {
				return err
			}
			if completer == nil {
				return errors.New("no optimizer backend configured (set [optimizer].provider)")
			}

			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				targets, err := suggestTargets(cmd.Context(), repos, platformFlags)
				if err != nil {
					return err
				}
				req := schedule.SuggestRequest{PostsPerWeek: make(map[platform.ID]int, len(targets))}
				if loc, err := cfg.Location(); err == nil {
					req.Timezone = loc.String()
				}
				for _, id := range targets {
					req.PostsPerWeek[id] = perWeek
				}

				suggested, err := schedule.NewSuggester(completer, ctx.cliLogger()).Suggest(cmd.Context(), req)
				if err != nil {
					return err
				}
				sortSchedules(suggested)

				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(suggested))
				for _, item := range suggested {
					rows = append(rows, []string{item.PlatformID.DisplayName(), string(item.DayOfWeek), item.Time, truncate(item.AIReasoning, 60)})
				}
				printTable(out, "No suggestions", []string{"Platform", "Day", "Time", "Reasoning"}, rows, nil)

				if !apply {
					fmt.Fprintln(out, "Run again with --apply to save these slots")
					return nil
				}
				for _, item := range suggested {
					if _, err := repos.Schedules.Add(cmd.Context(), item); err != nil {
						return err
					}
				}
				fmt.Fprintf(out, "Saved %d AI schedules\n", len(suggested))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&platformFlags, "platform", "p", nil, "Platforms to plan for (default: enabled platforms)")
	cmd.Flags().IntVar(&perWeek, "per-week", 3, "Slots per platform per week")
	cmd.Flags().BoolVar(&apply, "apply", false, "Store the suggested slots")
	return cmd
}

// suggestTargets resolves explicit platforms, or every platform enabled in the
// registry when none are given.
func suggestTargets(ctx context.Context, repos *store.Repos, flags []string) ([]platform.ID, error) {
	if len(flags) > 0 {
		ids := make([]platform.ID, 0, len(flags))
		for _, value := range flags {
			id, err := platform.Parse(value)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	entries, err := repos.Platforms.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []platform.ID
	for _, entry := range entries {
		if entry.Enabled {
			ids = append(ids, entry.ID)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("no enabled platforms in the registry (run `postpilot platform sync` or pass --platform)")
	}
	return ids, nil
}

type scheduledFire struct {
	at       time.Time
	schedule schedule.WeeklySchedule
}

// upcomingFires lists the next openings of enabled slots in time order. Each
// slot fires once a week, so a slot repeats only when limit exceeds the
// number of slots.
func upcomingFires(items []schedule.WeeklySchedule, now time.Time, limit int) []scheduledFire {
	var enabled []schedule.WeeklySchedule
	for _, item := range items {
		if item.Enabled {
			enabled = append(enabled, item)
		}
	}
	if len(enabled) == 0 || limit <= 0 {
		return nil
	}

	fires := make([]scheduledFire, 0, limit)
	cursor := make(map[string]time.Time, len(enabled))
	for len(fires) < limit {
		var best scheduledFire
		found := false
		for _, item := range enabled {
			from, ok := cursor[item.ID]
			if !ok {
				from = now
			}
			at, err := item.NextFire(from)
			if err != nil {
				continue
			}
			if !found || at.Before(best.at) || (at.Equal(best.at) && item.ID < best.schedule.ID) {
				best = scheduledFire{at: at, schedule: item}
				found = true
			}
		}
		if !found {
			break
		}
		fires = append(fires, best)
		cursor[best.schedule.ID] = best.at
	}
	return fires
}

// resolveSchedule finds a schedule by full id or unique id prefix.
func resolveSchedule(ctx context.Context, repos *store.Repos, ref string) (schedule.WeeklySchedule, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return schedule.WeeklySchedule{}, errors.New("schedule id is required")
	}
	if item, err := repos.Schedules.Get(ctx, ref); err == nil {
		return item, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return schedule.WeeklySchedule{}, err
	}
	items, err := repos.Schedules.List(ctx)
	if err != nil {
		return schedule.WeeklySchedule{}, err
	}
	var matches []schedule.WeeklySchedule
	for _, item := range items {
		if strings.HasPrefix(item.ID, ref) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return schedule.WeeklySchedule{}, fmt.Errorf("schedule %q not found", ref)
	case 1:
		return matches[0], nil
	default:
		return schedule.WeeklySchedule{}, fmt.Errorf("schedule id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func filterSchedules(items []schedule.WeeklySchedule, id platform.ID) []schedule.WeeklySchedule {
	if id == "" {
		return items
	}
	out := items[:0:0]
	for _, item := range items {
		if item.PlatformID == id {
			out = append(out, item)
		}
	}
	return out
}

// sortSchedules orders by platform, then Monday-first day, then time.
func sortSchedules(items []schedule.WeeklySchedule) {
	dayIndex := make(map[schedule.Weekday]int, 7)
	for i, day := range schedule.Weekdays() {
		dayIndex[day] = i
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.PlatformID != b.PlatformID {
			return a.PlatformID < b.PlatformID
		}
		if dayIndex[a.DayOfWeek] != dayIndex[b.DayOfWeek] {
			return dayIndex[a.DayOfWeek] < dayIndex[b.DayOfWeek]
		}
		return a.Time < b.Time
	})
}

func optionalPlatform(value string) (platform.ID, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return platform.Parse(value)
}

// dispatchNow is the current time in the dispatch timezone.
func dispatchNow(ctx *commandContext) (time.Time, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return time.Time{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"postpilot/internal/config"
	"postpilot/internal/platform"
	"postpilot/internal/store"
)

func newPlatformCommand(ctx *commandContext) *cobra.Command {
	platformCmd := &cobra.Command{
		Use:     "platform",
		Aliases: []string{"platforms"},
		Short:   "Inspect and configure publishing platforms",
	}
	platformCmd.AddCommand(
		newPlatformListCommand(ctx),
		newPlatformToggleCommand(ctx, true),
		newPlatformToggleCommand(ctx, false),
		newPlatformSetCommand(ctx),
		newPlatformSyncCommand(ctx),
	)
	return platformCmd
}

func newPlatformListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the platform registry, daily caps, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				rows := make([][]string, 0, len(platform.All()))
				for _, id := range platform.All() {
					entry, found, err := repos.Platforms.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					settings, err := repos.Settings.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					enabled, retries := "not registered", "-"
					if found {
						enabled = yesNo(entry.Enabled)
						retries = "off"
						if entry.RetryOnFail {
							retries = strconv.Itoa(entry.MaxRetries)
						}
					}
					rows = append(rows, []string{
						string(id),
						id.DisplayName(),
						string(id.Category()),
						enabled,
						credentialSummary(id, cfg.Credentials),
						fmt.Sprintf("%d/day", settings.PostsPerDay),
						yesNo(settings.Enabled),
						retries,
					})
				}
				printTable(cmd.OutOrStdout(), "No platforms",
					[]string{"ID", "Name", "Category", "Enabled", "Credentials", "Cap", "Cap enabled", "Retries"},
					rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight})
				return nil
			})
		},
	}
}

func credentialSummary(id platform.ID, creds config.Credentials) string {
	missing := platform.MissingCredentials(id, creds)
	if len(missing) == 0 {
		return "ok"
	}
	return "missing " + strings.Join(missing, ", ")
}

func newPlatformToggleCommand(ctx *commandContext, enable bool) *cobra.Command {
	use, verb := "disable", "Disabled"
	if enable {
		use, verb = "enable", "Enabled"
	}
	return &cobra.Command{
		Use:   use + " <platform>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " publishing to a platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := platform.Parse(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				entry, err := registryEntry(cmd, repos, cfg, id)
				if err != nil {
					return err
				}
				entry.Enabled = enable
				if err := repos.Platforms.Put(cmd.Context(), entry); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, id.DisplayName())
				if enable && !entry.HasAPIKeys {
					fmt.Fprintf(cmd.OutOrStdout(), "warning: %s has no credentials; due slots will be skipped (%s)\n",
						id.DisplayName(), strings.Join(platform.MissingCredentials(id, cfg.Credentials), ", "))
				}
				return nil
			})
		},
	}
}

func newPlatformSetCommand(ctx *commandContext) *cobra.Command {
	var postsPerDay, maxRetries int
	var retryOnFail, capEnabled bool
	cmd := &cobra.Command{
		Use:   "set <platform>",
		Short: "Change a platform's daily cap or retry policy",
		Args:  cobra.ExactArgs(1),
		Example: "  postpilot platform set devTo --posts-per-day 2\n" +
			"  postpilot platform set twitter --retry-on-fail --max-retries 3",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := platform.Parse(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("posts-per-day") && !flags.Changed("cap-enabled") &&
				!flags.Changed("retry-on-fail") && !flags.Changed("max-retries") {
				return errors.New("nothing to change: pass --posts-per-day, --cap-enabled, --retry-on-fail, or --max-retries")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				if flags.Changed("posts-per-day") || flags.Changed("cap-enabled") {
					settings, err := repos.Settings.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					if flags.Changed("posts-per-day") {
						settings.PostsPerDay = postsPerDay
					}
					if flags.Changed("cap-enabled") {
						settings.Enabled = capEnabled
					}
					if err := repos.Settings.Put(cmd.Context(), settings); err != nil {
						return err
					}
				}
				if flags.Changed("retry-on-fail") || flags.Changed("max-retries") {
					entry, err := registryEntry(cmd, repos, cfg, id)
					if err != nil {
						return err
					}
					if flags.Changed("retry-on-fail") {
						entry.RetryOnFail = retryOnFail
					}
					if flags.Changed("max-retries") {
						entry.MaxRetries = maxRetries
					}
					if err := repos.Platforms.Put(cmd.Context(), entry); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", id.DisplayName())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&postsPerDay, "posts-per-day", 1, "Daily publication cap")
	cmd.Flags().BoolVar(&capEnabled, "cap-enabled", true, "Whether the platform's settings allow publishing")
	cmd.Flags().BoolVar(&retryOnFail, "retry-on-fail", false, "Retry failed publications")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Retries after the first attempt (0-10)")
	return cmd
}

func newPlatformSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Seed missing registry entries and refresh credential flags from config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				result, err := repos.Platforms.Sync(cmd.Context(), cfg, repos.Settings)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(result.Created) == 0 {
					fmt.Fprintln(out, "Registry already up to date")
				}
				for _, id := range result.Created {
					fmt.Fprintf(out, "Registered %s\n", id.DisplayName())
				}
				for _, id := range platform.All() {
					if !result.Credentials[id] {
						fmt.Fprintf(out, "%s: credentials missing\n", id.DisplayName())
					}
				}
				return nil
			})
		},
	}
}

// registryEntry loads a registry entry, seeding it from config when the
// registry has never been synced.
func registryEntry(cmd *cobra.Command, repos *store.Repos, cfg *config.Config, id platform.ID) (platform.Config, error) {
	entry, found, err := repos.Platforms.Get(cmd.Context(), id)
	if err != nil {
		return platform.Config{}, err
	}
	if !found {
		entry, _ = platform.Seed(id, cfg)
	}
	entry.HasAPIKeys = platform.HasCredentials(id, cfg.Credentials)
	return entry, nil
}

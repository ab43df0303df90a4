package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"postpilot/internal/content"
	"postpilot/internal/platform"
	"postpilot/internal/sources"
	"postpilot/internal/store"
)

func newContentCommand(ctx *commandContext) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Manage stored drafts and preview source candidates",
	}
	contentCmd.AddCommand(
		newContentListCommand(ctx),
		newContentShowCommand(ctx),
		newContentAddCommand(ctx),
		newContentRemoveCommand(ctx),
		newContentSourcesCommand(ctx),
	)
	return contentCmd
}

func newContentListCommand(ctx *commandContext) *cobra.Command {
	var categoryFlag, statusFlag, platformFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored content items",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ContentFilter{}
			if categoryFlag != "" {
				category, ok := content.ParseCategory(categoryFlag)
				if !ok {
					return fmt.Errorf("invalid category %q (want blog, feed, or reel)", categoryFlag)
				}
				filter.Category = category
			}
			if statusFlag != "" {
				status, err := parseContentStatus(statusFlag)
				if err != nil {
					return err
				}
				filter.Statuses = []content.Status{status}
			}
			if id, err := optionalPlatform(platformFlag); err != nil {
				return err
			} else if id != "" {
				filter.Platform = string(id)
			}

			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				items, err := repos.Contents.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					scheduled := "-"
					if item.ScheduledDate != nil {
						scheduled = item.ScheduledDate.Format(displayTimeFormat)
					}
					rows = append(rows, []string{
						shortID(item.ID),
						truncate(item.Title, 40),
						string(item.Category),
						string(item.PublishStatus),
						dash(item.Platform),
						scheduled,
						dash(item.SourceName),
					})
				}
				printTable(cmd.OutOrStdout(), "No content stored",
					[]string{"ID", "Title", "Category", "Status", "Platform", "Scheduled", "Source"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&categoryFlag, "category", "", "Filter by category (blog, feed, reel)")
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by status (draft, scheduled, published, failed)")
	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Filter by target platform")
	return cmd
}

func newContentShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one content item and its publish records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				item, err := resolveContent(cmd, repos, args[0])
				if err != nil {
					return err
				}
				records, err := repos.Records.List(cmd.Context(), store.RecordFilter{ContentID: item.ID})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", item.ID)
				fmt.Fprintf(out, "Title:     %s\n", item.Title)
				fmt.Fprintf(out, "Category:  %s\n", item.Category)
				fmt.Fprintf(out, "Status:    %s\n", item.PublishStatus)
				fmt.Fprintf(out, "Platform:  %s\n", dash(item.Platform))
				fmt.Fprintf(out, "Tags:      %s\n", dash(strings.Join(item.Tags, ", ")))
				fmt.Fprintf(out, "Media:     %s\n", dash(strings.Join(item.MediaURLs, ", ")))
				fmt.Fprintf(out, "Canonical: %s\n", dash(item.CanonicalURL))
				fmt.Fprintf(out, "Excerpt:   %s\n", dash(truncate(item.Excerpt, 120)))
				fmt.Fprintln(out)
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						record.PublishDate.Format(displayTimeFormat),
						platform.ID(record.Platform).DisplayName(),
						string(record.Status),
						truncate(dash(firstNonEmpty(record.PublishedURL, record.ErrorMessage)), 60),
					})
				}
				printTable(out, "No publish records", []string{"When", "Platform", "Status", "Detail"}, rows, nil)
				return nil
			})
		},
	}
}

func newContentAddCommand(ctx *commandContext) *cobra.Command {
	var title, body, excerpt, categoryFlag, platformFlag, scheduledFlag, canonical string
	var tags, media []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a draft for the dispatch loop to publish",
		Example: "  postpilot content add --title \"Release notes\" --content \"...\" --category blog\n" +
			"  postpilot content add --title Clip --category reel --media https://cdn.example/clip.mp4 --platform youtube",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return errors.New("--title is required")
			}
			category, ok := content.ParseCategory(categoryFlag)
			if !ok {
				return fmt.Errorf("invalid category %q (want blog, feed, or reel)", categoryFlag)
			}
			item := content.Item{
				Title:         strings.TrimSpace(title),
				Content:       body,
				Excerpt:       strings.TrimSpace(excerpt),
				Tags:          cleanList(tags),
				Category:      category,
				PublishStatus: content.StatusDraft,
				MediaURLs:     cleanList(media),
				CanonicalURL:  strings.TrimSpace(canonical),
				SourceName:    "cli",
			}
			if id, err := optionalPlatform(platformFlag); err != nil {
				return err
			} else if id != "" {
				if id.Category() != category {
					return fmt.Errorf("%s publishes %s content, not %s", id.DisplayName(), id.Category(), category)
				}
				item.Platform = string(id)
			}
			if scheduledFlag != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				loc, err := cfg.Location()
				if err != nil {
					return err
				}
				at, err := parseScheduledDate(scheduledFlag, loc)
				if err != nil {
					return err
				}
				item.ScheduledDate = &at
				item.PublishStatus = content.StatusScheduled
			}

			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				stored, err := repos.Contents.Put(cmd.Context(), item)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s %s (%s)\n", stored.PublishStatus, stored.ID, stored.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&body, "content", "", "Body text")
	cmd.Flags().StringVar(&excerpt, "excerpt", "", "Short summary")
	cmd.Flags().StringVar(&categoryFlag, "category", string(content.CategoryBlog), "Category (blog, feed, reel)")
	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Restrict to one platform")
	cmd.Flags().StringVar(&scheduledFlag, "scheduled", "", "Earliest publish time (YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().StringVar(&canonical, "canonical", "", "Canonical URL")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tags (comma separated)")
	cmd.Flags().StringSliceVar(&media, "media", nil, "Media URLs (comma separated)")
	return cmd
}

func newContentRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a content item and its publish records",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				item, err := resolveContent(cmd, repos, args[0])
				if err != nil {
					return err
				}
				removed, err := repos.Contents.Delete(cmd.Context(), item.ID, repos.Records)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted content %s and %d publish records\n", item.ID, removed)
				return nil
			})
		},
	}
}

func newContentSourcesCommand(ctx *commandContext) *cobra.Command {
	var preview string
	var limit int
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List content sources per category, or preview candidates for a platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withRepos(cmd.Context(), func(repos *store.Repos) error {
				aggregator := sources.FromConfig(cfg, repos.Contents, ctx.cliLogger())
				out := cmd.OutOrStdout()
				if preview == "" {
					rows := make([][]string, 0, 3)
					for _, category := range []content.Category{content.CategoryBlog, content.CategoryFeed, content.CategoryReel} {
						rows = append(rows, []string{string(category), strings.Join(aggregator.Sources(category), ", ")})
					}
					printTable(out, "No sources", []string{"Category", "Sources"}, rows, nil)
					return nil
				}

				id, err := platform.Parse(preview)
				if err != nil {
					return err
				}
				candidates, err := aggregator.Fetch(cmd.Context(), sources.Request{
					Platforms: []platform.ID{id},
					Category:  id.Category(),
				})
				if err != nil {
					return err
				}
				if limit > 0 && len(candidates) > limit {
					candidates = candidates[:limit]
				}
				rows := make([][]string, 0, len(candidates))
				for _, raw := range candidates {
					rows = append(rows, []string{
						truncate(raw.Title, 50),
						dash(raw.SourceName),
						sinceTime(raw.PublishedAt, time.Now()),
					})
				}
				printTable(out, "No candidates for "+id.DisplayName(), []string{"Title", "Source", "Published"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&preview, "preview", "", "Fetch candidates for this platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum candidates to show")
	return cmd
}

// resolveContent finds an item by full id or unique id prefix.
func resolveContent(cmd *cobra.Command, repos *store.Repos, ref string) (content.Item, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return content.Item{}, errors.New("content id is required")
	}
	if item, err := repos.Contents.Get(cmd.Context(), ref); err == nil {
		return item, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return content.Item{}, err
	}
	items, err := repos.Contents.List(cmd.Context(), store.ContentFilter{})
	if err != nil {
		return content.Item{}, err
	}
	var matches []content.Item
	for _, item := range items {
		if strings.HasPrefix(item.ID, ref) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return content.Item{}, fmt.Errorf("content %q not found", ref)
	case 1:
		return matches[0], nil
	default:
		return content.Item{}, fmt.Errorf("content id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func parseContentStatus(value string) (content.Status, error) {
	switch status := content.Status(strings.ToLower(strings.TrimSpace(value))); status {
	case content.StatusDraft, content.StatusScheduled, content.StatusPublished, content.StatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("invalid status %q (want draft, scheduled, published, or failed)", value)
	}
}

func parseScheduledDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if at, err := time.Parse(time.RFC3339, value); err == nil {
		return at, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if at, err := time.ParseInLocation(layout, value, loc); err == nil {
			return at, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid scheduled time %q (want YYYY-MM-DD HH:MM or RFC3339)", value)
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

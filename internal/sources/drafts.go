package sources

import (
	"context"
	"time"

	"postpilot/internal/content"
	"postpilot/internal/platform"
	"postpilot/internal/store"
)

// Drafts yields stored draft and scheduled items that are ready to publish.
type Drafts struct {
	contents *store.Contents
	now      func() time.Time
}

// NewDrafts reads pending items from contents.
func NewDrafts(contents *store.Contents) *Drafts {
	return &Drafts{contents: contents, now: time.Now}
}

func (d *Drafts) Name() string { return "drafts" }

func (d *Drafts) Fetch(ctx context.Context, req Request) ([]Raw, error) {
	items, err := d.contents.List(ctx, store.ContentFilter{
		Category: req.Category,
		Statuses: []content.Status{content.StatusDraft, content.StatusScheduled},
	})
	if err != nil {
		return nil, err
	}
	now := d.now()
	var out []Raw
	for _, item := range items {
		if !item.ReadyAt(now) {
			continue
		}
		if item.Platform != "" && !targetsPlatform(req.Platforms, platform.ID(item.Platform)) {
			continue
		}
		out = append(out, Raw{
			SourceID:   "draft:" + item.ID,
			SourceName: d.Name(),
			ContentID:  item.ID,
			Platform:   item.Platform,
			Title:      item.Title,
			Body:       item.Content,
			Excerpt:    item.Excerpt,
			Tags:       item.Tags,
			MediaURLs:  item.MediaURLs,
			URL:        item.CanonicalURL,
		})
	}
	return out, nil
}

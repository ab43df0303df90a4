package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"postpilot/internal/content"
)

// Contents persists content items.
type Contents struct {
	repo
}

// ContentFilter narrows List. Zero values match everything.
type ContentFilter struct {
	Category content.Category
	Statuses []content.Status
	Platform string
	SourceID string
}

func (f ContentFilter) match(item content.Item) bool {
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.Platform != "" && item.Platform != f.Platform {
		return false
	}
	if f.SourceID != "" && item.SourceID != f.SourceID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, status := range f.Statuses {
		if item.PublishStatus == status {
			return true
		}
	}
	return false
}

// Put upserts an item, assigning an ID and timestamps as needed.
func (c *Contents) Put(ctx context.Context, item content.Item) (content.Item, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := c.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.MediaURLs == nil {
		item.MediaURLs = []string{}
	}
	if err := setJSON(ctx, c.storage, contentKey(item.ID), item); err != nil {
		return content.Item{}, err
	}
	return item, nil
}

// Get fetches one item.
func (c *Contents) Get(ctx context.Context, id string) (content.Item, error) {
	var item content.Item
	if err := getJSON(ctx, c.storage, contentKey(id), &item); err != nil {
		return content.Item{}, err
	}
	return item, nil
}

// List returns matching items in creation order.
func (c *Contents) List(ctx context.Context, filter ContentFilter) ([]content.Item, error) {
	all, err := listJSON[content.Item](ctx, c.storage, prefixContent, c.skipCorrupt)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, item := range all {
		if filter.match(item) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// PublishedSources returns the source IDs already published to a platform.
func (c *Contents) PublishedSources(ctx context.Context, platformID string) (map[string]struct{}, error) {
	items, err := c.List(ctx, ContentFilter{Platform: platformID, Statuses: []content.Status{content.StatusPublished}})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.SourceID != "" {
			seen[item.SourceID] = struct{}{}
		}
	}
	return seen, nil
}

// Delete removes an item and the publish records it owns.
func (c *Contents) Delete(ctx context.Context, id string, records *Records) (int, error) {
	if _, err := c.Get(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, fmt.Errorf("content %s: %w", id, err)
		}
		return 0, err
	}
	removed := 0
	if records != nil {
		n, err := records.DeleteByContent(ctx, id)
		if err != nil {
			return n, err
		}
		removed = n
	}
	if err := c.storage.Delete(ctx, contentKey(id)); err != nil {
		return removed, err
	}
	return removed, nil
}

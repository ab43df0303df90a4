package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"postpilot/internal/content"
)

// Records persists publish attempt records.
type Records struct {
	repo
}

// RecordFilter narrows List. Zero values match everything.
type RecordFilter struct {
	Platform  string
	Status    content.RecordStatus
	ContentID string
	Date      string
	Limit     int
}

func (f RecordFilter) match(r content.Record) bool {
	if f.Platform != "" && r.Platform != f.Platform {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ContentID != "" && r.ContentID != f.ContentID {
		return false
	}
	if f.Date != "" && DateKey(r.PublishDate) != f.Date {
		return false
	}
	return true
}

// Add stores a new record, assigning an ID and timestamps as needed.
func (r *Records) Add(ctx context.Context, record content.Record) (content.Record, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = content.RecordPending
	}
	now := r.now()
	if record.PublishDate.IsZero() {
		record.PublishDate = now
	}
	record.UpdatedAt = now
	if err := setJSON(ctx, r.storage, recordKey(record.ID), record); err != nil {
		return content.Record{}, err
	}
	return record, nil
}

// Update replaces a record in place.
func (r *Records) Update(ctx context.Context, record content.Record) (content.Record, error) {
	if record.ID == "" {
		return content.Record{}, errors.New("record id is required")
	}
	record.UpdatedAt = r.now()
	if err := setJSON(ctx, r.storage, recordKey(record.ID), record); err != nil {
		return content.Record{}, err
	}
	return record, nil
}

// Get fetches one record.
func (r *Records) Get(ctx context.Context, id string) (content.Record, error) {
	var record content.Record
	if err := getJSON(ctx, r.storage, recordKey(id), &record); err != nil {
		return content.Record{}, err
	}
	return record, nil
}

// List returns matching records, newest first.
func (r *Records) List(ctx context.Context, filter RecordFilter) ([]content.Record, error) {
	all, err := listJSON[content.Record](ctx, r.storage, prefixRecord, r.skipCorrupt)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, record := range all {
		if filter.match(record) {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishDate.After(out[j].PublishDate)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// DeleteByContent removes every record owned by a content item.
func (r *Records) DeleteByContent(ctx context.Context, contentID string) (int, error) {
	records, err := r.List(ctx, RecordFilter{ContentID: contentID})
	if err != nil {
		return 0, err
	}
	for i, record := range records {
		if err := r.storage.Delete(ctx, recordKey(record.ID)); err != nil {
			return i, fmt.Errorf("delete record %s: %w", record.ID, err)
		}
	}
	return len(records), nil
}

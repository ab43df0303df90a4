package content

import (
	"encoding/json"
	"testing"
	"time"
)

func TestItemDecodeDefaults(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(`{"id":"c1","title":"Hello"}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.PublishStatus != StatusDraft {
		t.Fatalf("expected draft default, got %q", item.PublishStatus)
	}
	if item.Category != CategoryBlog {
		t.Fatalf("expected blog default, got %q", item.Category)
	}
	if item.Tags == nil || item.MediaURLs == nil {
		t.Fatal("expected non-nil slices")
	}
}

func TestItemReadyAt(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	cases := []struct {
		item Item
		want bool
	}{
		{Item{PublishStatus: StatusDraft}, true},
		{Item{PublishStatus: StatusScheduled, ScheduledDate: &later}, false},
		{Item{PublishStatus: StatusScheduled, ScheduledDate: &now}, true},
		{Item{PublishStatus: StatusPublished}, false},
		{Item{PublishStatus: StatusFailed}, false},
	}
	for i, tc := range cases {
		if got := tc.item.ReadyAt(now); got != tc.want {
			t.Fatalf("case %d: ReadyAt = %v, want %v", i, got, tc.want)
		}
	}
}

func TestRecordDecodeDefaultsToPending(t *testing.T) {
	var record Record
	if err := json.Unmarshal([]byte(`{"id":"r1","platform":"devTo"}`), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record.Status != RecordPending {
		t.Fatalf("expected pending, got %q", record.Status)
	}
}

func TestParseCategory(t *testing.T) {
	if got, ok := ParseCategory(" Reel "); !ok || got != CategoryReel {
		t.Fatalf("expected reel, got %q %v", got, ok)
	}
	if _, ok := ParseCategory("podcast"); ok {
		t.Fatal("expected unknown category to fail")
	}
}

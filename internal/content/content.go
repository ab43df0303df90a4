// Package content defines the content items the dispatch loop publishes and
// the publish records it writes for every attempt.
package content

import (
	"encoding/json"
	"strings"
	"time"
)

// Category groups platforms by the shape of content they accept.
type Category string

const (
	CategoryBlog Category = "blog"
	CategoryFeed Category = "feed"
	CategoryReel Category = "reel"
)

// ParseCategory normalizes a category name.
func ParseCategory(value string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryBlog:
		return CategoryBlog, true
	case CategoryFeed:
		return CategoryFeed, true
	case CategoryReel:
		return CategoryReel, true
	default:
		return "", false
	}
}

// Status is a content item's publish state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// Item is a unit of publishable content.
type Item struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt"`
	Tags          []string   `json:"tags"`
	Category      Category   `json:"category"`
	PublishStatus Status     `json:"publishStatus"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	MediaURLs     []string   `json:"mediaUrls"`
	CanonicalURL  string     `json:"canonicalUrl,omitempty"`
	SourceID      string     `json:"sourceId,omitempty"`
	SourceName    string     `json:"sourceName,omitempty"`
	Platform      string     `json:"platform,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// UnmarshalJSON fills defaults for fields missing from older records.
func (i *Item) UnmarshalJSON(data []byte) error {
	type alias Item
	decoded := alias{PublishStatus: StatusDraft, Category: CategoryBlog}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if decoded.Tags == nil {
		decoded.Tags = []string{}
	}
	if decoded.MediaURLs == nil {
		decoded.MediaURLs = []string{}
	}
	*i = Item(decoded)
	return nil
}

// Pending reports whether the item is still waiting to be published.
func (i Item) Pending() bool {
	return i.PublishStatus == StatusDraft || i.PublishStatus == StatusScheduled
}

// ReadyAt reports whether a pending item may be published at now.
func (i Item) ReadyAt(now time.Time) bool {
	if !i.Pending() {
		return false
	}
	return i.ScheduledDate == nil || !i.ScheduledDate.After(now)
}

// FirstMedia returns the first media URL, if any.
func (i Item) FirstMedia() string {
	for _, url := range i.MediaURLs {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// RecordStatus is the outcome of one publish attempt.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordPublished RecordStatus = "published"
	RecordFailed    RecordStatus = "failed"
)

// Record logs one publish attempt. It is created pending and updated in place.
type Record struct {
	ID            string       `json:"id"`
	ContentID     string       `json:"contentId"`
	Platform      string       `json:"platform"`
	ScheduleID    string       `json:"scheduleId,omitempty"`
	Status        RecordStatus `json:"status"`
	RetryCount    int          `json:"retryCount"`
	PublishedURL  string       `json:"publishedUrl,omitempty"`
	ErrorMessage  string       `json:"errorMessage,omitempty"`
	ErrorCategory string       `json:"errorCategory,omitempty"`
	PublishDate   time.Time    `json:"publishDate"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// UnmarshalJSON fills defaults for fields missing from older records.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	decoded := alias{Status: RecordPending}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Record(decoded)
	return nil
}

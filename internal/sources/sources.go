// Package sources fetches candidate content for the dispatch loop from local
// drafts and upstream feeds.
package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"postpilot/internal/config"
	"postpilot/internal/content"
	"postpilot/internal/logging"
	"postpilot/internal/platform"
	"postpilot/internal/services"
	"postpilot/internal/store"
	"postpilot/internal/textutil"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultMaxItems       = 20
	duplicateThreshold    = 0.9
	excerptLimit          = 280
)

// Raw is one upstream content record.
type Raw struct {
	SourceID    string
	SourceName  string
	ContentID   string // set when the record is an existing stored item
	Platform    string // restricts a draft to one platform
	Title       string
	Body        string
	Excerpt     string
	Tags        []string
	MediaURLs   []string
	URL         string
	PublishedAt time.Time
}

// Item converts the record into a content item for category.
func (r Raw) Item(category content.Category) content.Item {
	excerpt := strings.TrimSpace(r.Excerpt)
	if excerpt == "" {
		excerpt = textutil.Excerpt(r.Body, excerptLimit)
	}
	tags := append([]string(nil), r.Tags...)
	media := append([]string(nil), r.MediaURLs...)
	if tags == nil {
		tags = []string{}
	}
	if media == nil {
		media = []string{}
	}
	return content.Item{
		ID:            r.ContentID,
		Title:         strings.TrimSpace(r.Title),
		Content:       r.Body,
		Excerpt:       excerpt,
		Tags:          tags,
		Category:      category,
		PublishStatus: content.StatusDraft,
		MediaURLs:     media,
		CanonicalURL:  r.URL,
		SourceID:      r.SourceID,
		SourceName:    r.SourceName,
		Platform:      r.Platform,
	}
}

// Request asks for candidates for the given platforms.
type Request struct {
	Platforms []platform.ID
	Category  content.Category
}

// Source yields candidates. Returning no records is not an error.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]Raw, error)
}

// originSource is implemented by sources that mirror a publishing platform;
// they are never used to feed that same platform.
type originSource interface {
	Origin() platform.ID
}

// Fetcher is the call contract the dispatch loop depends on.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]Raw, error)
}

// Aggregator fans a request out to the sources registered for its category.
type Aggregator struct {
	byCategory map[content.Category][]Source
	timeout    time.Duration
	logger     *slog.Logger
}

// NewAggregator returns an empty aggregator. timeout bounds each source call.
func NewAggregator(logger *slog.Logger, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Aggregator{
		byCategory: make(map[content.Category][]Source),
		timeout:    timeout,
		logger:     logging.NewComponentLogger(logger, "sources"),
	}
}

// Register adds src for the given categories, in priority order.
func (a *Aggregator) Register(src Source, categories ...content.Category) {
	for _, category := range categories {
		a.byCategory[category] = append(a.byCategory[category], src)
	}
}

// Sources lists the source names registered for category.
func (a *Aggregator) Sources(category content.Category) []string {
	names := make([]string, 0, len(a.byCategory[category]))
	for _, src := range a.byCategory[category] {
		names = append(names, src.Name())
	}
	return names
}

// Fetch concatenates candidates from every applicable source, dropping
// near-duplicate titles. A failing source is logged and skipped; the call
// fails only when every attempted source failed.
func (a *Aggregator) Fetch(ctx context.Context, req Request) ([]Raw, error) {
	var (
		out       []Raw
		errs      []error
		attempted int
		seen      []*textutil.Fingerprint
	)
	for _, src := range a.byCategory[req.Category] {
		if origin, ok := src.(originSource); ok && targetsPlatform(req.Platforms, origin.Origin()) {
			continue
		}
		attempted++
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		records, err := src.Fetch(callCtx, req)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			logging.WarnWithContext(a.logger, "content source failed", "source_failed",
				logging.String("source", src.Name()),
				logging.String("category", string(req.Category)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the source configuration and network access"),
				logging.String(logging.FieldImpact, "candidates from this source skipped"),
			)
			continue
		}
		for _, record := range records {
			fp := textutil.NewFingerprint(record.Title)
			if isDuplicate(seen, fp) {
				continue
			}
			if fp != nil {
				seen = append(seen, fp)
			}
			out = append(out, record)
		}
	}
	if attempted > 0 && len(errs) == attempted {
		return nil, services.Wrap(services.ErrTransient, "sources", "fetch", "every content source failed", errors.Join(errs...))
	}
	a.logger.Debug("content candidates fetched",
		logging.String("category", string(req.Category)),
		logging.Int("sources", attempted),
		logging.Int("candidates", len(out)),
	)
	return out, nil
}

func isDuplicate(seen []*textutil.Fingerprint, fp *textutil.Fingerprint) bool {
	if fp == nil {
		return false
	}
	for _, prior := range seen {
		if textutil.CosineSimilarity(prior, fp) >= duplicateThreshold {
			return true
		}
	}
	return false
}

func targetsPlatform(platforms []platform.ID, id platform.ID) bool {
	for _, p := range platforms {
		if p == id {
			return true
		}
	}
	return false
}

// FromConfig wires the configured sources: drafts and the feed sources for
// blog and feed platforms, drafts and the video CSV for reel platforms.
func FromConfig(cfg *config.Config, contents *store.Contents, logger *slog.Logger) *Aggregator {
	timeout := time.Duration(cfg.Sources.RequestTimeout) * time.Second
	agg := NewAggregator(logger, timeout)
	client := &http.Client{Timeout: agg.timeout}
	maxItems := cfg.Sources.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	text := []content.Category{content.CategoryBlog, content.CategoryFeed}

	if contents != nil {
		agg.Register(NewDrafts(contents), content.CategoryBlog, content.CategoryFeed, content.CategoryReel)
	}
	for _, feed := range cfg.Sources.RSSFeeds {
		if strings.TrimSpace(feed) != "" {
			agg.Register(NewRSS(feed, client, maxItems), text...)
		}
	}
	if user := strings.TrimSpace(cfg.Sources.DevtoUsername); user != "" {
		agg.Register(NewDevto(user, client, maxItems), text...)
	}
	if host := strings.TrimSpace(cfg.Sources.HashnodeHost); host != "" {
		agg.Register(NewHashnode(host, client, maxItems), text...)
	}
	if path := strings.TrimSpace(cfg.Sources.VideoCSV); path != "" {
		agg.Register(NewVideoCSV(path), content.CategoryReel)
	}
	return agg
}

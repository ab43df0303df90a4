package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postpilot/internal/textutil"
)

const maxFeedBytes = 4 << 20

// RSS reads an RSS 2.0 or Atom feed.
type RSS struct {
	url      string
	client   *http.Client
	maxItems int
}

// NewRSS returns a source for feedURL.
func NewRSS(feedURL string, client *http.Client, maxItems int) *RSS {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &RSS{url: strings.TrimSpace(feedURL), client: client, maxItems: maxItems}
}

func (r *RSS) Name() string { return "rss " + r.url }

type rssDocument struct {
	XMLName xml.Name
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	Description string   `xml:"description"`
	Encoded     string   `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
	Enclosure   struct {
		URL  string `xml:"url,attr"`
		Type string `xml:"type,attr"`
	} `xml:"enclosure"`
}

type atomEntry struct {
	Title string `xml:"title"`
	ID    string `xml:"id"`
	Links []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
	Summary    string `xml:"summary"`
	Content    string `xml:"content"`
	Updated    string `xml:"updated"`
	Published  string `xml:"published"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

func (r *RSS) Fetch(ctx context.Context, _ Request) ([]Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %s", resp.Status)
	}
	return parseFeed(io.LimitReader(resp.Body, maxFeedBytes), r.Name(), r.maxItems)
}

func parseFeed(body io.Reader, sourceName string, maxItems int) ([]Raw, error) {
	var doc rssDocument
	decoder := xml.NewDecoder(body)
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	var out []Raw
	for _, item := range doc.Channel.Items {
		html := firstNonEmpty(item.Encoded, item.Description)
		id := firstNonEmpty(item.GUID, item.Link, item.Title)
		raw := Raw{
			SourceID:    "rss:" + strings.TrimSpace(id),
			SourceName:  sourceName,
			Title:       textutil.HTMLToText(item.Title),
			Body:        textutil.HTMLToText(html),
			Tags:        item.Categories,
			URL:         strings.TrimSpace(item.Link),
			PublishedAt: parseFeedTime(item.PubDate),
		}
		if media := firstNonEmpty(enclosureImage(item.Enclosure.URL, item.Enclosure.Type), textutil.FirstImage(html)); media != "" {
			raw.MediaURLs = []string{media}
		}
		out = append(out, raw)
		if maxItems > 0 && len(out) == maxItems {
			return out, nil
		}
	}
	for _, entry := range doc.Entries {
		html := firstNonEmpty(entry.Content, entry.Summary)
		link := ""
		for _, l := range entry.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		tags := make([]string, 0, len(entry.Categories))
		for _, c := range entry.Categories {
			tags = append(tags, c.Term)
		}
		raw := Raw{
			SourceID:    "rss:" + strings.TrimSpace(firstNonEmpty(entry.ID, link, entry.Title)),
			SourceName:  sourceName,
			Title:       textutil.HTMLToText(entry.Title),
			Body:        textutil.HTMLToText(html),
			Tags:        tags,
			URL:         strings.TrimSpace(link),
			PublishedAt: parseFeedTime(firstNonEmpty(entry.Published, entry.Updated)),
		}
		if media := textutil.FirstImage(html); media != "" {
			raw.MediaURLs = []string{media}
		}
		out = append(out, raw)
		if maxItems > 0 && len(out) == maxItems {
			break
		}
	}
	return out, nil
}

func enclosureImage(url, mimeType string) string {
	if strings.HasPrefix(mimeType, "image/") {
		return strings.TrimSpace(url)
	}
	return ""
}

var feedTimeLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC3339, "Mon, 2 Jan 2006 15:04:05 -0700", "Mon, 2 Jan 2006 15:04:05 MST"}

func parseFeedTime(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

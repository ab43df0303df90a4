package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"postpilot/internal/platform"
)

const devtoBaseURL = "https://dev.to"

// Devto reads public articles of a Dev.to user, used to cross-post to other
// platforms.
type Devto struct {
	username string
	baseURL  string
	client   *http.Client
	maxItems int
}

// NewDevto returns a source for username.
func NewDevto(username string, client *http.Client, maxItems int) *Devto {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Devto{username: username, baseURL: devtoBaseURL, client: client, maxItems: maxItems}
}

// WithBaseURL points the source at another API host.
func (d *Devto) WithBaseURL(base string) *Devto {
	d.baseURL = strings.TrimRight(base, "/")
	return d
}

func (d *Devto) Name() string { return "devto " + d.username }

func (d *Devto) Origin() platform.ID { return platform.DevTo }

type devtoArticle struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	TagList     []string  `json:"tag_list"`
	CoverImage  string    `json:"cover_image"`
	PublishedAt time.Time `json:"published_at"`
}

func (d *Devto) Fetch(ctx context.Context, _ Request) ([]Raw, error) {
	query := url.Values{}
	query.Set("username", d.username)
	if d.maxItems > 0 {
		query.Set("per_page", strconv.Itoa(d.maxItems))
	}
	endpoint := d.baseURL + "/api/articles?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.forem.api-v1+json")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list articles: unexpected status %s", resp.Status)
	}
	var articles []devtoArticle
	if err := json.NewDecoder(resp.Body).Decode(&articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}

	out := make([]Raw, 0, len(articles))
	for _, article := range articles {
		raw := Raw{
			SourceID:    "devto:" + strconv.FormatInt(article.ID, 10),
			SourceName:  d.Name(),
			Title:       article.Title,
			Body:        strings.TrimSpace(article.Description + "\n\n" + article.URL),
			Excerpt:     article.Description,
			Tags:        article.TagList,
			URL:         article.URL,
			PublishedAt: article.PublishedAt,
		}
		if article.CoverImage != "" {
			raw.MediaURLs = []string{article.CoverImage}
		}
		out = append(out, raw)
	}
	return out, nil
}

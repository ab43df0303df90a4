package publish

import (
	"context"
	"net/http"
	"strings"

	"postpilot/internal/content"
	"postpilot/internal/textutil"
)

const (
	devtoBaseURL = "https://dev.to"
	devtoMaxTags = 4
)

// Devto publishes articles with the Forem articles API.
type Devto struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func (d *Devto) Publish(ctx context.Context, item content.Item, form FormData) Result {
	if strings.TrimSpace(d.APIKey) == "" {
		return failed("devTo: api key required")
	}
	article := map[string]any{
		"title":         item.Title,
		"body_markdown": item.Content,
		"published":     form.Get("published", "true") != "false",
		"tags":          textutil.NormalizeTags(item.Tags, devtoMaxTags),
	}
	if item.Excerpt != "" {
		article["description"] = item.Excerpt
	}
	if canonical := form.Get("canonical_url", item.CanonicalURL); canonical != "" {
		article["canonical_url"] = canonical
	}
	if cover := item.FirstMedia(); cover != "" {
		article["main_image"] = cover
	}
	if series := form.Get("series", ""); series != "" {
		article["series"] = series
	}

	var resp struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	}
	base := d.BaseURL
	if base == "" {
		base = devtoBaseURL
	}
	if _, err := doJSON(ctx, d.Client, request{
		method:  http.MethodPost,
		url:     joinURL(base, "/api/articles"),
		headers: map[string]string{"api-key": d.APIKey},
		body:    map[string]any{"article": article},
	}, &resp); err != nil {
		return failedErr(err)
	}
	if resp.ID == 0 {
		return failed("devTo: response missing article id")
	}
	return succeeded(resp.URL)
}

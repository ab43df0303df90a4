package publish

import (
	"context"
	"net/http"
	"strings"

	"postpilot/internal/content"
)

const (
	linkedInBaseURL  = "https://api.linkedin.com"
	linkedInMaxChars = 3000
)

// LinkedIn shares text posts through the UGC posts API.
type LinkedIn struct {
	Client      *http.Client
	BaseURL     string
	AccessToken string
	AuthorURN   string
}

func (l *LinkedIn) Publish(ctx context.Context, item content.Item, form FormData) Result {
	if strings.TrimSpace(l.AccessToken) == "" || strings.TrimSpace(l.AuthorURN) == "" {
		return failed("linkedin: access token and author urn required")
	}
	share := map[string]any{
		"shareCommentary":    map[string]string{"text": composePost(item, linkedInMaxChars, true)},
		"shareMediaCategory": "NONE",
	}
	if link := form.Get("canonical_url", item.CanonicalURL); link != "" {
		share["shareMediaCategory"] = "ARTICLE"
		share["media"] = []map[string]any{{
			"status":      "READY",
			"originalUrl": link,
			"title":       map[string]string{"text": item.Title},
		}}
	}
	body := map[string]any{
		"author":          l.AuthorURN,
		"lifecycleState":  "PUBLISHED",
		"specificContent": map[string]any{"com.linkedin.ugc.ShareContent": share},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": form.Get("visibility", "PUBLIC"),
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	base := l.BaseURL
	if base == "" {
		base = linkedInBaseURL
	}
	header, err := doJSON(ctx, l.Client, request{
		method: http.MethodPost,
		url:    joinURL(base, "/v2/ugcPosts"),
		headers: map[string]string{
			"Authorization":             bearer(l.AccessToken),
			"X-Restli-Protocol-Version": "2.0.0",
		},
		body: body,
	}, &resp)
	if err != nil {
		return failedErr(err)
	}
	id := resp.ID
	if id == "" && header != nil {
		id = header.Get("X-RestLi-Id")
	}
	if id == "" {
		return failed("linkedin: response missing post id")
	}
	return succeeded("https://www.linkedin.com/feed/update/" + id)
}

package publish

import (
	"context"
	"net/http"
	"strings"

	"postpilot/internal/content"
)

const (
	twitterBaseURL  = "https://api.twitter.com"
	twitterMaxChars = 280
)

// Twitter posts tweets with the v2 API using an OAuth 2.0 user token.
type Twitter struct {
	Client      *http.Client
	BaseURL     string
	BearerToken string
}

func (t *Twitter) Publish(ctx context.Context, item content.Item, form FormData) Result {
	if strings.TrimSpace(t.BearerToken) == "" {
		return failed("twitter: bearer token required")
	}
	text := composePost(item, twitterMaxChars, form.Get("hashtags", "true") != "false")
	if text == "" {
		return failed("twitter: nothing to post")
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	base := t.BaseURL
	if base == "" {
		base = twitterBaseURL
	}
	if _, err := doJSON(ctx, t.Client, request{
		method:  http.MethodPost,
		url:     joinURL(base, "/2/tweets"),
		headers: map[string]string{"Authorization": bearer(t.BearerToken)},
		body:    map[string]any{"text": text},
	}, &resp); err != nil {
		return failedErr(err)
	}
	if resp.Data.ID == "" {
		return failed("twitter: response missing tweet id")
	}
	return succeeded("https://x.com/i/web/status/" + resp.Data.ID)
}

package publish

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"postpilot/internal/content"
)

const (
	instagramBaseURL    = "https://graph.facebook.com/v19.0"
	instagramMaxCaption = 2200
	instagramPollEvery  = 5 * time.Second
)

// Instagram publishes media through the Graph API container flow: create a
// media container, then publish it. Video containers are polled until the
// Graph API reports FINISHED.
type Instagram struct {
	Client       *http.Client
	BaseURL      string
	AccessToken  string
	AccountID    string
	PollInterval time.Duration
}

func (i *Instagram) Publish(ctx context.Context, item content.Item, form FormData) Result {
	if strings.TrimSpace(i.AccessToken) == "" || strings.TrimSpace(i.AccountID) == "" {
		return failed("instagram: access token and account id required")
	}
	media := item.FirstMedia()
	if media == "" {
		return failed("instagram: content has no media url")
	}
	base := i.BaseURL
	if base == "" {
		base = instagramBaseURL
	}

	video := isVideoURL(media)
	params := url.Values{}
	params.Set("caption", composePost(item, instagramMaxCaption, true))
	params.Set("access_token", i.AccessToken)
	if video {
		params.Set("media_type", form.Get("media_type", "REELS"))
		params.Set("video_url", media)
	} else {
		params.Set("image_url", media)
	}
	var container struct {
		ID string `json:"id"`
	}
	if _, err := doJSON(ctx, i.Client, request{
		method: http.MethodPost,
		url:    joinURL(base, "/"+i.AccountID+"/media") + "?" + params.Encode(),
	}, &container); err != nil {
		return failedErr(err)
	}
	if container.ID == "" {
		return failed("instagram: response missing container id")
	}
	if video {
		if err := i.waitForContainer(ctx, base, container.ID); err != nil {
			return failedErr(err)
		}
	}

	publishParams := url.Values{}
	publishParams.Set("creation_id", container.ID)
	publishParams.Set("access_token", i.AccessToken)
	var published struct {
		ID string `json:"id"`
	}
	if _, err := doJSON(ctx, i.Client, request{
		method: http.MethodPost,
		url:    joinURL(base, "/"+i.AccountID+"/media_publish") + "?" + publishParams.Encode(),
	}, &published); err != nil {
		return failedErr(err)
	}
	if published.ID == "" {
		return failed("instagram: response missing media id")
	}
	return succeeded(i.permalink(ctx, base, published.ID))
}

// waitForContainer polls the container status until the upload is processed.
func (i *Instagram) waitForContainer(ctx context.Context, base, containerID string) error {
	interval := i.PollInterval
	if interval <= 0 {
		interval = instagramPollEvery
	}
	params := url.Values{}
	params.Set("fields", "status_code")
	params.Set("access_token", i.AccessToken)
	statusURL := joinURL(base, "/"+containerID) + "?" + params.Encode()
	for {
		var resp struct {
			StatusCode string `json:"status_code"`
		}
		if _, err := doJSON(ctx, i.Client, request{method: http.MethodGet, url: statusURL}, &resp); err != nil {
			return fmt.Errorf("instagram: container status: %w", err)
		}
		switch strings.ToUpper(resp.StatusCode) {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("instagram: container %s status %s", containerID, resp.StatusCode)
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("instagram: container %s still processing: %w", containerID, ctx.Err())
		case <-timer.C:
		}
	}
}

// permalink resolves the public URL of a published media object. The media id
// alone is returned when the lookup fails.
func (i *Instagram) permalink(ctx context.Context, base, mediaID string) string {
	params := url.Values{}
	params.Set("fields", "permalink")
	params.Set("access_token", i.AccessToken)
	var resp struct {
		Permalink string `json:"permalink"`
	}
	if _, err := doJSON(ctx, i.Client, request{
		method: http.MethodGet,
		url:    joinURL(base, "/"+mediaID) + "?" + params.Encode(),
	}, &resp); err != nil || resp.Permalink == "" {
		return mediaID
	}
	return resp.Permalink
}

func isVideoURL(raw string) bool {
	path := strings.ToLower(raw)
	if parsed, err := url.Parse(raw); err == nil {
		path = strings.ToLower(parsed.Path)
	}
	for _, ext := range []string{".mp4", ".mov", ".m4v", ".webm"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

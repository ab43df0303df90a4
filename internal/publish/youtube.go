package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"postpilot/internal/content"
	"postpilot/internal/textutil"
)

const (
	youtubeBaseURL        = "https://www.googleapis.com"
	youtubeMaxTitle       = 100
	youtubeMaxDescription = 5000
	youtubeMaxTags        = 15
)

// YouTube uploads videos with the Data API resumable upload protocol. The
// video bytes are streamed from the item's first media URL.
type YouTube struct {
	Client      *http.Client
	BaseURL     string
	AccessToken string
}

func (y *YouTube) Publish(ctx context.Context, item content.Item, form FormData) Result {
	if strings.TrimSpace(y.AccessToken) == "" {
		return failed("youtube: access token required")
	}
	source := item.FirstMedia()
	if source == "" {
		return failed("youtube: content has no video url")
	}
	base := y.BaseURL
	if base == "" {
		base = youtubeBaseURL
	}

	video, size, contentType, err := y.openSource(ctx, source)
	if err != nil {
		return failedErr(err)
	}
	defer video.Close()

	uploadURL, err := y.startSession(ctx, base, item, form, size, contentType)
	if err != nil {
		return failedErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, video)
	if err != nil {
		return failedErr(fmt.Errorf("build upload request: %w", err))
	}
	req.Header.Set("Authorization", bearer(y.AccessToken))
	req.Header.Set("Content-Type", contentType)
	if size > 0 {
		req.ContentLength = size
	}
	resp, err := y.Client.Do(req)
	if err != nil {
		return failedErr(fmt.Errorf("upload video: %w", err))
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return failedErr(err)
	}
	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return failedErr(fmt.Errorf("decode upload response: %w", err))
	}
	if uploaded.ID == "" {
		return failed("youtube: response missing video id")
	}
	return succeeded("https://www.youtube.com/watch?v=" + uploaded.ID)
}

func (y *YouTube) openSource(ctx context.Context, source string) (io.ReadCloser, int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("build video request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("fetch video: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, 0, "", fmt.Errorf("fetch video: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") {
		contentType = "video/*"
	}
	return resp.Body, resp.ContentLength, contentType, nil
}

func (y *YouTube) startSession(ctx context.Context, base string, item content.Item, form FormData, size int64, contentType string) (string, error) {
	description := strings.TrimSpace(item.Content)
	if link := strings.TrimSpace(item.CanonicalURL); link != "" && !strings.Contains(description, link) {
		description = strings.TrimSpace(description + "\n\n" + link)
	}
	metadata := map[string]any{
		"snippet": map[string]any{
			"title":       textutil.Truncate(strings.TrimSpace(item.Title), youtubeMaxTitle),
			"description": textutil.Truncate(description, youtubeMaxDescription),
			"tags":        textutil.NormalizeTags(item.Tags, youtubeMaxTags),
			"categoryId":  form.Get("category_id", "22"),
		},
		"status": map[string]any{
			"privacyStatus":           form.Get("privacy_status", "public"),
			"selfDeclaredMadeForKids": form.Get("made_for_kids", "false") == "true",
		},
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	endpoint := joinURL(base, "/upload/youtube/v3/videos") + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", bearer(y.AccessToken))
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Upload-Content-Type", contentType)
	if size > 0 {
		req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
	}
	resp, err := y.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("start upload session: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("start upload session: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("start upload session: response missing Location header")
	}
	return location, nil
}

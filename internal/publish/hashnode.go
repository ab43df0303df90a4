package publish

import (
	"context"
	"net/http"
	"strings"

	"postpilot/internal/content"
	"postpilot/internal/textutil"
)

const (
	hashnodeEndpoint = "https://gql.hashnode.com"
	hashnodeMaxTags  = 5
)

const publishPostMutation = `mutation PublishPost($input: PublishPostInput!) {
  publishPost(input: $input) {
    post { id url }
  }
}`

// Hashnode publishes articles through the publishPost GraphQL mutation.
type Hashnode struct {
	Client        *http.Client
	Endpoint      string
	Token         string
	PublicationID string
}

type hashnodeTag struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type hashnodeInput struct {
	Title              string         `json:"title"`
	Subtitle           string         `json:"subtitle,omitempty"`
	PublicationID      string         `json:"publicationId"`
	ContentMarkdown    string         `json:"contentMarkdown"`
	Tags               []hashnodeTag  `json:"tags"`
	OriginalArticleURL string         `json:"originalArticleURL,omitempty"`
	CoverImageOptions  map[string]any `json:"coverImageOptions,omitempty"`
}

func (h *Hashnode) Publish(ctx context.Context, item content.Item, form FormData) Result {
	if strings.TrimSpace(h.Token) == "" || strings.TrimSpace(h.PublicationID) == "" {
		return failed("hashnode: token and publication id required")
	}
	input := hashnodeInput{
		Title:              item.Title,
		Subtitle:           textutil.Truncate(item.Excerpt, 250),
		PublicationID:      form.Get("publication_id", h.PublicationID),
		ContentMarkdown:    item.Content,
		Tags:               []hashnodeTag{},
		OriginalArticleURL: form.Get("canonical_url", item.CanonicalURL),
	}
	for _, tag := range textutil.NormalizeTags(item.Tags, hashnodeMaxTags) {
		input.Tags = append(input.Tags, hashnodeTag{Slug: tag, Name: tag})
	}
	if cover := item.FirstMedia(); cover != "" {
		input.CoverImageOptions = map[string]any{"coverImageURL": cover}
	}

	var resp struct {
		Data struct {
			PublishPost struct {
				Post struct {
					ID  string `json:"id"`
					URL string `json:"url"`
				} `json:"post"`
			} `json:"publishPost"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	endpoint := h.Endpoint
	if endpoint == "" {
		endpoint = hashnodeEndpoint
	}
	_, err := doJSON(ctx, h.Client, request{
		method:  http.MethodPost,
		url:     endpoint,
		headers: map[string]string{"Authorization": h.Token},
		body: map[string]any{
			"query":     publishPostMutation,
			"variables": map[string]any{"input": input},
		},
	}, &resp)
	if err != nil {
		return failedErr(err)
	}
	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		return failed("hashnode: %s", strings.Join(messages, "; "))
	}
	if resp.Data.PublishPost.Post.ID == "" {
		return failed("hashnode: response missing post")
	}
	return succeeded(resp.Data.PublishPost.Post.URL)
}

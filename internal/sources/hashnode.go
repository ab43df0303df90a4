package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"postpilot/internal/platform"
)

const hashnodeGQLURL = "https://gql.hashnode.com"

const hashnodePostsQuery = `query Posts($host: String!, $first: Int!) {
  publication(host: $host) {
    posts(first: $first) {
      edges {
        node {
          id
          title
          brief
          url
          publishedAt
          coverImage { url }
          tags { name }
          content { markdown }
        }
      }
    }
  }
}`

// Hashnode reads posts of a Hashnode publication through the public GraphQL API.
type Hashnode struct {
	host     string
	endpoint string
	client   *http.Client
	maxItems int
}

// NewHashnode returns a source for the publication at host.
func NewHashnode(host string, client *http.Client, maxItems int) *Hashnode {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	return &Hashnode{host: host, endpoint: hashnodeGQLURL, client: client, maxItems: maxItems}
}

// WithEndpoint points the source at another GraphQL endpoint.
func (h *Hashnode) WithEndpoint(endpoint string) *Hashnode {
	h.endpoint = endpoint
	return h
}

func (h *Hashnode) Name() string { return "hashnode " + h.host }

func (h *Hashnode) Origin() platform.ID { return platform.Hashnode }

type hashnodePostsResponse struct {
	Data struct {
		Publication *struct {
			Posts struct {
				Edges []struct {
					Node struct {
						ID          string    `json:"id"`
						Title       string    `json:"title"`
						Brief       string    `json:"brief"`
						URL         string    `json:"url"`
						PublishedAt time.Time `json:"publishedAt"`
						CoverImage  *struct {
							URL string `json:"url"`
						} `json:"coverImage"`
						Tags []struct {
							Name string `json:"name"`
						} `json:"tags"`
						Content struct {
							Markdown string `json:"markdown"`
						} `json:"content"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"posts"`
		} `json:"publication"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (h *Hashnode) Fetch(ctx context.Context, _ Request) ([]Raw, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     hashnodePostsQuery,
		"variables": map[string]any{"host": h.host, "first": h.maxItems},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query posts: unexpected status %s", resp.Status)
	}
	var decoded hashnodePostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("query posts: %s", decoded.Errors[0].Message)
	}
	if decoded.Data.Publication == nil {
		return nil, fmt.Errorf("publication %q not found", h.host)
	}

	edges := decoded.Data.Publication.Posts.Edges
	out := make([]Raw, 0, len(edges))
	for _, edge := range edges {
		node := edge.Node
		tags := make([]string, 0, len(node.Tags))
		for _, tag := range node.Tags {
			tags = append(tags, tag.Name)
		}
		raw := Raw{
			SourceID:    "hashnode:" + node.ID,
			SourceName:  h.Name(),
			Title:       node.Title,
			Body:        strings.TrimSpace(node.Content.Markdown),
			Excerpt:     node.Brief,
			Tags:        tags,
			URL:         node.URL,
			PublishedAt: node.PublishedAt,
		}
		if node.CoverImage != nil && node.CoverImage.URL != "" {
			raw.MediaURLs = []string{node.CoverImage.URL}
		}
		out = append(out, raw)
	}
	return out, nil
}

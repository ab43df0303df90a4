package publish

import (
	"strings"
	"unicode/utf8"

	"postpilot/internal/content"
	"postpilot/internal/textutil"
)

// composePost builds the text of a short-form post: the body (or title when
// the body is empty), then the canonical link and hashtags when they fit.
func composePost(item content.Item, limit int, withTags bool) string {
	body := strings.TrimSpace(item.Content)
	if body == "" {
		body = strings.TrimSpace(item.Title)
	}
	var suffix []string
	if link := strings.TrimSpace(item.CanonicalURL); link != "" && !strings.Contains(body, link) {
		suffix = append(suffix, link)
	}
	if withTags {
		if tags := textutil.Hashtags(item.Tags); tags != "" {
			suffix = append(suffix, tags)
		}
	}
	text := body
	for _, extra := range suffix {
		candidate := text + "\n\n" + extra
		if limit > 0 && utf8.RuneCountInString(candidate) > limit {
			continue
		}
		text = candidate
	}
	if limit > 0 {
		text = textutil.Truncate(text, limit)
	}
	return text
}

package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "…"

// Truncate shortens value to at most limit runes, preferring a word boundary
// in the last fifth and appending an ellipsis when anything was cut.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	if limit == 1 {
		return ellipsis
	}
	runes := []rune(value)
	cut := runes[:limit-1]
	floor := len(cut) * 4 / 5
	for i := len(cut) - 1; i > floor; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + ellipsis
}

// Excerpt returns the first paragraph of text limited to limit runes.
func Excerpt(text string, limit int) string {
	trimmed := strings.TrimSpace(text)
	if idx := strings.Index(trimmed, "\n\n"); idx > 0 {
		trimmed = trimmed[:idx]
	}
	return Truncate(collapseSpace(trimmed), limit)
}

// NormalizeTag lowercases a tag and drops everything but letters and digits,
// so "#Go Lang" and "go-lang" both become "golang".
func NormalizeTag(tag string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(tag) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeTags normalizes, de-duplicates and caps a tag list, keeping order.
// A limit of zero or less keeps every tag.
func NormalizeTags(tags []string, limit int) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Hashtags renders tags as a space-separated hashtag line.
func Hashtags(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if normalized := NormalizeTag(tag); normalized != "" {
			parts = append(parts, "#"+normalized)
		}
	}
	return strings.Join(parts, " ")
}

// SplitList splits a delimited tag field on commas, semicolons or pipes.
func SplitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

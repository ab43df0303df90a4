package optimizer

import (
	"strconv"
	"strings"

	"postpilot/internal/platform"
	"postpilot/internal/textutil"
)

// Limits bounds the fields a platform accepts. Zero means unbounded.
type Limits struct {
	Title   int
	Content int
	Excerpt int
	Tags    int
}

var platformLimits = map[platform.ID]Limits{
	platform.Hashnode:  {Title: 250, Excerpt: 350, Tags: 5},
	platform.DevTo:     {Title: 128, Excerpt: 300, Tags: 4},
	platform.Twitter:   {Title: 100, Content: 280, Excerpt: 280, Tags: 3},
	platform.LinkedIn:  {Title: 200, Content: 3000, Excerpt: 300, Tags: 5},
	platform.Instagram: {Title: 100, Content: 2200, Excerpt: 300, Tags: 30},
	platform.YouTube:   {Title: 100, Content: 5000, Excerpt: 300, Tags: 15},
}

// LimitsFor returns the field limits of a platform.
func LimitsFor(id platform.ID) Limits {
	return platformLimits[id]
}

// Describe renders the limits for the prompt.
func (l Limits) Describe() string {
	var parts []string
	add := func(label string, n int, unit string) {
		if n > 0 {
			parts = append(parts, label+" at most "+strconv.Itoa(n)+" "+unit)
		}
	}
	add("title", l.Title, "characters")
	add("content", l.Content, "characters")
	add("excerpt", l.Excerpt, "characters")
	add("tags", l.Tags, "entries")
	if len(parts) == 0 {
		return "no limits"
	}
	return strings.Join(parts, "; ")
}

// Clamp trims a result to the platform limits.
func Clamp(result Result, id platform.ID) Result {
	limits := LimitsFor(id)
	result.Title = strings.TrimSpace(result.Title)
	result.Content = strings.TrimSpace(result.Content)
	result.Excerpt = strings.TrimSpace(result.Excerpt)
	if limits.Title > 0 {
		result.Title = textutil.Truncate(result.Title, limits.Title)
	}
	if limits.Content > 0 {
		result.Content = textutil.Truncate(result.Content, limits.Content)
	}
	if limits.Excerpt > 0 {
		result.Excerpt = textutil.Truncate(result.Excerpt, limits.Excerpt)
	}
	result.Tags = textutil.NormalizeTags(result.Tags, limits.Tags)
	return result
}

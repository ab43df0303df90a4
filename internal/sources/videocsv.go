package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"postpilot/internal/textutil"
)

var videoColumns = []string{"id", "title", "description", "video_url", "thumbnail_url", "tags"}

// VideoCSV reads a queue of videos from a CSV file with a header row naming
// id, title, description, video_url, thumbnail_url and tags. Rows without a
// video URL are skipped.
type VideoCSV struct {
	path string
}

// NewVideoCSV returns a source reading path on every fetch.
func NewVideoCSV(path string) *VideoCSV {
	return &VideoCSV{path: path}
}

func (v *VideoCSV) Name() string { return "videocsv " + v.path }

func (v *VideoCSV) Fetch(ctx context.Context, _ Request) ([]Raw, error) {
	file, err := os.Open(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open video csv: %w", err)
	}
	defer file.Close()
	return parseVideoCSV(ctx, file, v.Name())
}

func parseVideoCSV(ctx context.Context, r io.Reader, sourceName string) ([]Raw, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"id", "title", "video_url"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("video csv missing %q column (want %s)", required, strings.Join(videoColumns, ","))
		}
	}
	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Raw
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		videoURL := field(row, "video_url")
		id := field(row, "id")
		if videoURL == "" || id == "" {
			continue
		}
		media := []string{videoURL}
		if thumb := field(row, "thumbnail_url"); thumb != "" {
			media = append(media, thumb)
		}
		out = append(out, Raw{
			SourceID:   "video:" + id,
			SourceName: sourceName,
			Title:      field(row, "title"),
			Body:       field(row, "description"),
			Tags:       textutil.SplitList(field(row, "tags")),
			MediaURLs:  media,
		})
	}
	return out, nil
}

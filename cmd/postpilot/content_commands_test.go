package main

import (
	"encoding/json"
	"testing"
	"time"

	"postpilot/internal/api"
)

func TestContentAddListShowRemove(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "content", "list")
	requireContains(t, out, "No content stored")

	out = mustRunCLI(t, env, "content", "add",
		"--title", "Shipping postpilot",
		"--content", "Long form body",
		"--tags", "go, release,",
		"--platform", "devTo",
	)
	requireContains(t, out, "Stored draft")
	id := addedID(t, out, "Stored draft ")

	out = mustRunCLI(t, env, "content", "add",
		"--title", "Launch clip",
		"--category", "reel",
		"--media", "https://cdn.example.com/clip.mp4",
		"--scheduled", "2026-11-02 10:00",
	)
	requireContains(t, out, "Stored scheduled")

	out = mustRunCLI(t, env, "content", "list", "--category", "blog")
	requireContains(t, out, "Shipping postpilot")
	requireNotContains(t, out, "Launch clip")

	out = mustRunCLI(t, env, "content", "list", "--status", "scheduled")
	requireContains(t, out, "Launch clip")
	requireContains(t, out, "Mon 2026-11-02 10:00")

	out = mustRunCLI(t, env, "content", "show", shortID(id))
	requireContains(t, out, "Title:     Shipping postpilot")
	requireContains(t, out, "Tags:      go, release")
	requireContains(t, out, "Platform:  devTo")
	requireContains(t, out, "No publish records")

	out = mustRunCLI(t, env, "content", "rm", id)
	requireContains(t, out, "Deleted content "+id+" and 0 publish records")

	out = mustRunCLI(t, env, "content", "list")
	requireNotContains(t, out, "Shipping postpilot")
}

func TestContentAddValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := [][]string{
		{"content", "add", "--content", "no title"},
		{"content", "add", "--title", "x", "--category", "podcast"},
		{"content", "add", "--title", "x", "--category", "reel", "--platform", "devTo"},
		{"content", "add", "--title", "x", "--scheduled", "next tuesday"},
		{"content", "list", "--status", "archived"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestContentSourcesListsDrafts(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "content", "sources")
	requireContains(t, out, "drafts")

	mustRunCLI(t, env, "content", "add", "--title", "Queued draft", "--category", "feed")
	out = mustRunCLI(t, env, "content", "sources", "--preview", "twitter")
	requireContains(t, out, "Queued draft")
}

func TestRecordsAndCountersEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "records")
	requireContains(t, out, "No publish records")

	out = mustRunCLI(t, env, "records", "--json", "--status", "failed")
	var records api.RecordListResponse
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode records: %v\n%s", err, out)
	}
	if len(records.Records) != 0 {
		t.Fatalf("expected no records, got %+v", records.Records)
	}

	out = mustRunCLI(t, env, "counters", "list")
	requireContains(t, out, "No counters recorded")

	out = mustRunCLI(t, env, "counters", "prune")
	requireContains(t, out, "Pruned 0 entries older than 30 days")

	for _, args := range [][]string{
		{"records", "--status", "exploded"},
		{"records", "--date", "19/10/2026"},
		{"records", "--platform", "myspace"},
	} {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestParseScheduledDate(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	got, err := parseScheduledDate("2026-11-02 10:00", loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := time.Date(2026, 11, 2, 15, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got.UTC(), want)
	}
	got, err = parseScheduledDate("2026-11-02T10:00:00Z", loc)
	if err != nil || !got.Equal(time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected RFC3339 parse %s, %v", got, err)
	}
}

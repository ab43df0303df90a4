package platform

import (
	"encoding/json"
	"testing"

	"postpilot/internal/config"
	"postpilot/internal/content"
)

func TestParseAcceptsAliases(t *testing.T) {
	cases := map[string]ID{
		"devto":    DevTo,
		"Dev.to":   DevTo,
		"TWITTER":  Twitter,
		"x":        Twitter,
		"youtube":  YouTube,
		"LinkedIn": LinkedIn,
	}
	for input, want := range cases {
		got, err := Parse(input)
		if err != nil || got != want {
			t.Fatalf("Parse(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := Parse("myspace"); err == nil {
		t.Fatal("expected unknown platform error")
	}
}

func TestCategoryMapping(t *testing.T) {
	want := map[ID]content.Category{
		Hashnode:  content.CategoryBlog,
		DevTo:     content.CategoryBlog,
		Twitter:   content.CategoryFeed,
		LinkedIn:  content.CategoryFeed,
		Instagram: content.CategoryReel,
		YouTube:   content.CategoryReel,
	}
	for id, category := range want {
		if got := id.Category(); got != category {
			t.Fatalf("%s category = %q, want %q", id, got, category)
		}
	}
	if got := ForCategory(content.CategoryReel); len(got) != 2 {
		t.Fatalf("expected two reel platforms, got %v", got)
	}
}

func TestDisplayName(t *testing.T) {
	if DevTo.DisplayName() != "Dev.to" {
		t.Fatalf("unexpected display name %q", DevTo.DisplayName())
	}
	if Hashnode.DisplayName() != "Hashnode" {
		t.Fatalf("unexpected display name %q", Hashnode.DisplayName())
	}
}

func TestEligibilityGates(t *testing.T) {
	settings := DefaultSettings(DevTo)
	base := Config{ID: DevTo, Enabled: true, HasAPIKeys: true}

	if got := Eligibility(base, true, settings); got != SkipNone {
		t.Fatalf("expected eligible, got %q", got)
	}
	if got := Eligibility(base, false, settings); got != SkipUnknownPlatform {
		t.Fatalf("expected unknown platform, got %q", got)
	}
	disabled := base
	disabled.Enabled = false
	if got := Eligibility(disabled, true, settings); got != SkipPlatformDisabled {
		t.Fatalf("expected platform disabled, got %q", got)
	}
	noKeys := base
	noKeys.HasAPIKeys = false
	if got := Eligibility(noKeys, true, settings); got != SkipMissingCredentials {
		t.Fatalf("expected missing credentials, got %q", got)
	}
	off := settings
	off.Enabled = false
	if got := Eligibility(base, true, off); got != SkipSettingsDisabled {
		t.Fatalf("expected settings disabled, got %q", got)
	}
}

func TestCapReached(t *testing.T) {
	settings := Settings{PlatformID: Twitter, PostsPerDay: 2, Enabled: true}
	if CapReached(settings, 1) {
		t.Fatal("cap should not be reached at 1 of 2")
	}
	if !CapReached(settings, 2) {
		t.Fatal("cap should be reached at 2 of 2")
	}
}

func TestSettingsDecodeDefaults(t *testing.T) {
	var settings Settings
	if err := json.Unmarshal([]byte(`{"platformId":"devTo"}`), &settings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if settings.PostsPerDay != 1 || !settings.Enabled {
		t.Fatalf("expected defaults, got %+v", settings)
	}
	if err := json.Unmarshal([]byte(`{"platformId":"devTo","postsPerDay":0,"enabled":false}`), &settings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if settings.PostsPerDay != 1 || settings.Enabled {
		t.Fatalf("expected cap clamp and explicit disable, got %+v", settings)
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{ID: DevTo, MaxRetries: 2}).Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
	if err := (Config{ID: "myspace"}).Validate(); err == nil {
		t.Fatal("expected unknown id to fail")
	}
	if err := (Config{ID: DevTo, MaxRetries: 11}).Validate(); err == nil {
		t.Fatal("expected max retries bound to fail")
	}
	if err := (Settings{PlatformID: Twitter, PostsPerDay: 0}).Validate(); err == nil {
		t.Fatal("expected zero cap to fail")
	}
}

func TestAttempts(t *testing.T) {
	if got := (Config{RetryOnFail: false, MaxRetries: 3}).Attempts(); got != 1 {
		t.Fatalf("expected single attempt without retryOnFail, got %d", got)
	}
	if got := (Config{RetryOnFail: true, MaxRetries: 3}).Attempts(); got != 4 {
		t.Fatalf("expected four attempts, got %d", got)
	}
}

func TestCredentialsAndSeed(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.LinkedInAccessToken = "token"
	if HasCredentials(LinkedIn, cfg.Credentials) {
		t.Fatal("linkedin needs an author urn as well")
	}
	missing := MissingCredentials(LinkedIn, cfg.Credentials)
	if len(missing) != 1 || missing[0] != "LINKEDIN_AUTHOR_URN" {
		t.Fatalf("unexpected missing list %v", missing)
	}
	cfg.Credentials.DevtoAPIKey = "key"
	off := false
	cfg.Platforms["devTo"] = config.Platform{Enabled: &off, PostsPerDay: 3, RetryOnFail: true, MaxRetries: 2}

	entry, settings := Seed(DevTo, &cfg)
	if entry.Enabled || !entry.HasAPIKeys || !entry.RetryOnFail || entry.MaxRetries != 2 {
		t.Fatalf("unexpected seeded entry %+v", entry)
	}
	if settings.PostsPerDay != 3 {
		t.Fatalf("unexpected seeded settings %+v", settings)
	}
}

package main

import (
	"testing"

	"postpilot/internal/config"
	"postpilot/internal/platform"
)

func TestPlatformListShowsCredentialsAndCaps(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "platform", "list")
	requireContains(t, out, "not registered")
	requireContains(t, out, "missing TWITTER_BEARER_TOKEN")
	requireContains(t, out, "1/day")

	out = mustRunCLI(t, env, "platform", "sync")
	requireContains(t, out, "Registered Dev.to")
	requireContains(t, out, "Twitter/X: credentials missing")
	requireNotContains(t, out, "Dev.to: credentials missing")

	out = mustRunCLI(t, env, "platform", "sync")
	requireContains(t, out, "Registry already up to date")

	out = mustRunCLI(t, env, "platform", "set", "devto", "--posts-per-day", "3", "--retry-on-fail", "--max-retries", "2")
	requireContains(t, out, "Updated Dev.to")

	out = mustRunCLI(t, env, "platform", "list")
	requireContains(t, out, "3/day")
	requireNotContains(t, out, "not registered")
}

func TestPlatformToggleWarnsWithoutCredentials(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "platform", "disable", "devTo")
	requireContains(t, out, "Disabled Dev.to")

	out = mustRunCLI(t, env, "platform", "enable", "x")
	requireContains(t, out, "Enabled Twitter/X")
	requireContains(t, out, "warning: Twitter/X has no credentials")
}

func TestPlatformSetValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := [][]string{
		{"platform", "set", "devTo"},
		{"platform", "set", "myspace", "--posts-per-day", "2"},
		{"platform", "set", "devTo", "--posts-per-day", "0"},
		{"platform", "set", "devTo", "--max-retries", "11"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestCredentialSummary(t *testing.T) {
	creds := config.Credentials{LinkedInAccessToken: "token"}
	if got := credentialSummary(platform.LinkedIn, creds); got != "missing LINKEDIN_AUTHOR_URN" {
		t.Fatalf("unexpected summary %q", got)
	}
	creds.LinkedInAuthorURN = "urn:li:person:1"
	if got := credentialSummary(platform.LinkedIn, creds); got != "ok" {
		t.Fatalf("unexpected summary %q", got)
	}
}

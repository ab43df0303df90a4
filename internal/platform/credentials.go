package platform

import (
	"strings"

	"postpilot/internal/config"
)

// requiredCredential names one secret a platform needs and its env fallback.
type requiredCredential struct {
	env   string
	value func(config.Credentials) string
}

var required = map[ID][]requiredCredential{
	Hashnode: {
		{"HASHNODE_TOKEN", func(c config.Credentials) string { return c.HashnodeToken }},
		{"HASHNODE_PUBLICATION_ID", func(c config.Credentials) string { return c.HashnodePublicationID }},
	},
	DevTo: {
		{"DEVTO_API_KEY", func(c config.Credentials) string { return c.DevtoAPIKey }},
	},
	Twitter: {
		{"TWITTER_BEARER_TOKEN", func(c config.Credentials) string { return c.TwitterBearerToken }},
	},
	LinkedIn: {
		{"LINKEDIN_ACCESS_TOKEN", func(c config.Credentials) string { return c.LinkedInAccessToken }},
		{"LINKEDIN_AUTHOR_URN", func(c config.Credentials) string { return c.LinkedInAuthorURN }},
	},
	Instagram: {
		{"INSTAGRAM_ACCESS_TOKEN", func(c config.Credentials) string { return c.InstagramAccessToken }},
		{"INSTAGRAM_ACCOUNT_ID", func(c config.Credentials) string { return c.InstagramAccountID }},
	},
	YouTube: {
		{"YOUTUBE_ACCESS_TOKEN", func(c config.Credentials) string { return c.YouTubeAccessToken }},
	},
}

// MissingCredentials lists the env names of secrets a platform lacks.
func MissingCredentials(id ID, creds config.Credentials) []string {
	var missing []string
	for _, req := range required[id] {
		if strings.TrimSpace(req.value(creds)) == "" {
			missing = append(missing, req.env)
		}
	}
	return missing
}

// HasCredentials reports whether every secret a platform needs is present.
func HasCredentials(id ID, creds config.Credentials) bool {
	if _, ok := required[id]; !ok {
		return false
	}
	return len(MissingCredentials(id, creds)) == 0
}

// Seed builds the initial registry entry and settings for a platform from the
// config file, including the credential snapshot.
func Seed(id ID, cfg *config.Config) (Config, Settings) {
	seed := cfg.PlatformSeed(string(id))
	entry := Config{
		ID:          id,
		Enabled:     seed.IsEnabled(),
		HasAPIKeys:  HasCredentials(id, cfg.Credentials),
		RetryOnFail: seed.RetryOnFail,
		MaxRetries:  seed.MaxRetries,
	}
	settings := Settings{PlatformID: id, PostsPerDay: seed.PostsPerDay, Enabled: true}
	return entry, settings
}

package publish

import (
	"net/http"
	"time"

	"postpilot/internal/config"
	"postpilot/internal/platform"
)

// FromConfig builds the adapter set for all six platforms from credentials and
// per-platform base URL overrides. client may be nil.
func FromConfig(cfg *config.Config, client *http.Client) *Set {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	creds := cfg.Credentials
	base := func(id platform.ID) string {
		return cfg.PlatformSeed(string(id)).BaseURL
	}
	set := NewSet()
	set.Register(platform.Hashnode, &Hashnode{
		Client:        client,
		Endpoint:      base(platform.Hashnode),
		Token:         creds.HashnodeToken,
		PublicationID: creds.HashnodePublicationID,
	})
	set.Register(platform.DevTo, &Devto{Client: client, BaseURL: base(platform.DevTo), APIKey: creds.DevtoAPIKey})
	set.Register(platform.Twitter, &Twitter{Client: client, BaseURL: base(platform.Twitter), BearerToken: creds.TwitterBearerToken})
	set.Register(platform.LinkedIn, &LinkedIn{
		Client:      client,
		BaseURL:     base(platform.LinkedIn),
		AccessToken: creds.LinkedInAccessToken,
		AuthorURN:   creds.LinkedInAuthorURN,
	})
	set.Register(platform.Instagram, &Instagram{
		Client:      client,
		BaseURL:     base(platform.Instagram),
		AccessToken: creds.InstagramAccessToken,
		AccountID:   creds.InstagramAccountID,
	})
	set.Register(platform.YouTube, &YouTube{Client: client, BaseURL: base(platform.YouTube), AccessToken: creds.YouTubeAccessToken})
	return set
}

// FormFor returns the configured form data for a platform.
func FormFor(cfg *config.Config, id platform.ID) FormData {
	seed := cfg.PlatformSeed(string(id))
	form := make(FormData, len(seed.Form))
	for key, value := range seed.Form {
		form[key] = value
	}
	return form
}

// Package platform describes the six publishing targets, their registry
// entries, and the eligibility rules the dispatch loop applies before a
// publish attempt.
package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"postpilot/internal/content"
)

// ID identifies a publishing platform.
type ID string

const (
	Hashnode  ID = "hashnode"
	DevTo     ID = "devTo"
	Twitter   ID = "twitter"
	LinkedIn  ID = "linkedin"
	Instagram ID = "instagram"
	YouTube   ID = "youtube"
)

var all = []ID{Hashnode, DevTo, Twitter, LinkedIn, Instagram, YouTube}

// All returns every known platform in display order.
func All() []ID {
	return append([]ID(nil), all...)
}

// Parse resolves a platform identifier case-insensitively ("devto" -> devTo).
func Parse(value string) (ID, error) {
	trimmed := strings.TrimSpace(value)
	for _, id := range all {
		if strings.EqualFold(string(id), trimmed) {
			return id, nil
		}
	}
	switch strings.ToLower(trimmed) {
	case "dev.to", "dev-to":
		return DevTo, nil
	case "x":
		return Twitter, nil
	}
	return "", fmt.Errorf("unknown platform %q", value)
}

// Known reports whether id is one of the fixed platform identifiers.
func Known(id ID) bool {
	for _, candidate := range all {
		if candidate == id {
			return true
		}
	}
	return false
}

// Category returns the content category a platform accepts.
func (id ID) Category() content.Category {
	switch id {
	case Hashnode, DevTo:
		return content.CategoryBlog
	case Twitter, LinkedIn:
		return content.CategoryFeed
	case Instagram, YouTube:
		return content.CategoryReel
	default:
		return ""
	}
}

// DisplayName returns a human label for CLI and notification output.
func (id ID) DisplayName() string {
	switch id {
	case DevTo:
		return "Dev.to"
	case Twitter:
		return "Twitter/X"
	case LinkedIn:
		return "LinkedIn"
	case YouTube:
		return "YouTube"
	default:
		return cases.Title(language.Und).String(string(id))
	}
}

// ForCategory lists the platforms that accept a category.
func ForCategory(category content.Category) []ID {
	var ids []ID
	for _, id := range all {
		if id.Category() == category {
			ids = append(ids, id)
		}
	}
	return ids
}

// Config is a platform registry entry. HasAPIKeys is a cached view of the
// credential store, refreshed on daemon start and by "platform sync".
type Config struct {
	ID          ID        `json:"id"`
	Enabled     bool      `json:"enabled"`
	HasAPIKeys  bool      `json:"hasApiKeys"`
	RetryOnFail bool      `json:"retryOnFail"`
	MaxRetries  int       `json:"maxRetries"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks registry invariants.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required, validation.By(knownID)),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
	)
}

// Attempts is the number of publish attempts the retry policy allows.
func (c Config) Attempts() int {
	if !c.RetryOnFail || c.MaxRetries <= 0 {
		return 1
	}
	return 1 + c.MaxRetries
}

// Settings carries the daily cap for a platform.
type Settings struct {
	PlatformID  ID        `json:"platformId"`
	PostsPerDay int       `json:"postsPerDay"`
	Enabled     bool      `json:"enabled"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings(id ID) Settings {
	return Settings{PlatformID: id, PostsPerDay: 1, Enabled: true}
}

// UnmarshalJSON applies the defaults for fields missing from stored records.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type alias Settings
	decoded := alias{PostsPerDay: 1, Enabled: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if decoded.PostsPerDay <= 0 {
		decoded.PostsPerDay = 1
	}
	*s = Settings(decoded)
	return nil
}

// Validate checks settings invariants.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.PlatformID, validation.Required, validation.By(knownID)),
		validation.Field(&s.PostsPerDay, validation.Required, validation.Min(1)),
	)
}

func knownID(value any) error {
	id, ok := value.(ID)
	if !ok {
		return errors.New("must be a platform id")
	}
	if !Known(id) {
		return fmt.Errorf("unknown platform %q", id)
	}
	return nil
}

// SkipReason explains why a due schedule was not executed.
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipUnknownPlatform    SkipReason = "unknown_platform"
	SkipPlatformDisabled   SkipReason = "platform_disabled"
	SkipMissingCredentials SkipReason = "missing_credentials"
	SkipSettingsDisabled   SkipReason = "settings_disabled"
	SkipDailyCapReached    SkipReason = "daily_cap_reached"
)

// Eligibility applies the registry gates in order: known, enabled,
// credentialed, settings enabled.
func Eligibility(cfg Config, found bool, settings Settings) SkipReason {
	switch {
	case !found || !Known(cfg.ID):
		return SkipUnknownPlatform
	case !cfg.Enabled:
		return SkipPlatformDisabled
	case !cfg.HasAPIKeys:
		return SkipMissingCredentials
	case !settings.Enabled:
		return SkipSettingsDisabled
	default:
		return SkipNone
	}
}

// CapReached reports whether count has hit the daily cap.
func CapReached(settings Settings, count int) bool {
	limit := settings.PostsPerDay
	if limit <= 0 {
		limit = 1
	}
	return count >= limit
}

package store

import (
	"context"
	"errors"
	"fmt"

	"postpilot/internal/config"
	"postpilot/internal/platform"
)

// Platforms persists the platform registry.
type Platforms struct {
	repo
}

// List returns stored registry entries in platform display order.
func (p *Platforms) List(ctx context.Context) ([]platform.Config, error) {
	stored, err := listJSON[platform.Config](ctx, p.storage, prefixPlatform, p.skipCorrupt)
	if err != nil {
		return nil, err
	}
	byID := make(map[platform.ID]platform.Config, len(stored))
	for _, entry := range stored {
		byID[entry.ID] = entry
	}
	out := make([]platform.Config, 0, len(stored))
	for _, id := range platform.All() {
		if entry, ok := byID[id]; ok {
			out = append(out, entry)
			delete(byID, id)
		}
	}
	for _, entry := range byID {
		out = append(out, entry)
	}
	return out, nil
}

// Get returns the entry for id and whether it exists.
func (p *Platforms) Get(ctx context.Context, id platform.ID) (platform.Config, bool, error) {
	var entry platform.Config
	err := getJSON(ctx, p.storage, platformKey(string(id)), &entry)
	if errors.Is(err, ErrNotFound) {
		return platform.Config{}, false, nil
	}
	if err != nil {
		return platform.Config{}, false, err
	}
	return entry, true, nil
}

// Put validates and upserts an entry.
func (p *Platforms) Put(ctx context.Context, entry platform.Config) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("platform %s: %w", entry.ID, err)
	}
	entry.UpdatedAt = p.now()
	return setJSON(ctx, p.storage, platformKey(string(entry.ID)), entry)
}

// Delete removes an entry.
func (p *Platforms) Delete(ctx context.Context, id platform.ID) error {
	return p.storage.Delete(ctx, platformKey(string(id)))
}

// SyncResult summarizes a registry sync.
type SyncResult struct {
	Created     []platform.ID
	Credentials map[platform.ID]bool
}

// Sync creates missing registry entries and settings from the config seeds
// and refreshes the cached credential flag on every entry. Existing enabled
// flags, retry settings and caps are left as stored.
func (p *Platforms) Sync(ctx context.Context, cfg *config.Config, settings *Settings) (SyncResult, error) {
	result := SyncResult{Credentials: make(map[platform.ID]bool)}
	for _, id := range platform.All() {
		seed, seedSettings := platform.Seed(id, cfg)
		result.Credentials[id] = seed.HasAPIKeys

		entry, found, err := p.Get(ctx, id)
		if err != nil {
			return result, err
		}
		if !found {
			entry = seed
			result.Created = append(result.Created, id)
		}
		entry.HasAPIKeys = seed.HasAPIKeys
		if err := p.Put(ctx, entry); err != nil {
			return result, err
		}
		if settings == nil {
			continue
		}
		if _, stored, err := settings.Lookup(ctx, id); err != nil {
			return result, err
		} else if !stored {
			if err := settings.Put(ctx, seedSettings); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

// Settings persists per-platform caps.
type Settings struct {
	repo
}

// Get returns stored settings, or defaults when none exist.
func (s *Settings) Get(ctx context.Context, id platform.ID) (platform.Settings, error) {
	settings, _, err := s.Lookup(ctx, id)
	return settings, err
}

// Lookup returns settings and whether they were stored.
func (s *Settings) Lookup(ctx context.Context, id platform.ID) (platform.Settings, bool, error) {
	var settings platform.Settings
	err := getJSON(ctx, s.storage, settingsKey(string(id)), &settings)
	if errors.Is(err, ErrNotFound) {
		return platform.DefaultSettings(id), false, nil
	}
	if err != nil {
		return platform.Settings{}, false, err
	}
	if settings.PlatformID == "" {
		settings.PlatformID = id
	}
	return settings, true, nil
}

// List returns settings for every platform, filling defaults.
func (s *Settings) List(ctx context.Context) ([]platform.Settings, error) {
	out := make([]platform.Settings, 0, len(platform.All()))
	for _, id := range platform.All() {
		settings, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, settings)
	}
	return out, nil
}

// Put validates and upserts settings.
func (s *Settings) Put(ctx context.Context, settings platform.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("settings %s: %w", settings.PlatformID, err)
	}
	settings.UpdatedAt = s.now()
	return setJSON(ctx, s.storage, settingsKey(string(settings.PlatformID)), settings)
}

// Delete removes stored settings, reverting to defaults.
func (s *Settings) Delete(ctx context.Context, id platform.ID) error {
	return s.storage.Delete(ctx, settingsKey(string(id)))
}

package store

import (
	"log/slog"
	"time"

	"postpilot/internal/logging"
)

// Repos bundles the typed repositories over one Storage.
type Repos struct {
	Storage   Storage
	Schedules *Schedules
	Platforms *Platforms
	Settings  *Settings
	Counters  *Counters
	Records   *Records
	Contents  *Contents
	Dispatch  *Dispatch
}

// New wires every repository over storage. Corrupt records are skipped on
// list with a warning on logger.
func New(storage Storage, logger *slog.Logger) *Repos {
	base := repo{
		storage: storage,
		logger:  logging.NewComponentLogger(logger, "store"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	return &Repos{
		Storage:   storage,
		Schedules: &Schedules{repo: base},
		Platforms: &Platforms{repo: base},
		Settings:  &Settings{repo: base},
		Counters:  &Counters{repo: base},
		Records:   &Records{repo: base},
		Contents:  &Contents{repo: base},
		Dispatch:  &Dispatch{repo: base},
	}
}

// Close closes the underlying storage.
func (r *Repos) Close() error {
	if r == nil || r.Storage == nil {
		return nil
	}
	return r.Storage.Close()
}

type repo struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

func (r repo) skipCorrupt(key string, err error) {
	logging.WarnWithContext(r.logger, "skipping unreadable record", "record_decode_failed",
		logging.String("key", key),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect or delete the record"),
		logging.String(logging.FieldImpact, "record ignored"),
	)
}

package config

import (
	"fmt"
	"log/slog"
	"sync"
)

// settingsDocName and settingsDocVersion identify the persisted settings
// document. Bump the version when the Settings schema changes shape in a way
// json field addition cannot absorb.
const (
	settingsDocName    = "lap-settings"
	settingsDocVersion = 1
)

// DocumentStore is the persistence surface the settings store needs.
// Implemented by storage.DB.
type DocumentStore interface {
	SaveDocument(name string, version int, v any) error
	LoadDocument(name string, v any) (int, bool, error)
}

// Store holds the active settings value and writes the full settings
// document through on every mutation.
type Store struct {
	db DocumentStore

	mu       sync.RWMutex
	settings Settings
}

// NewStore loads the persisted settings document, falling back to
// environment-derived defaults when none exists yet.
func NewStore(db DocumentStore) (*Store, error) {
	s := &Store{db: db, settings: Defaults()}

	var persisted Settings
	version, found, err := db.LoadDocument(settingsDocName, &persisted)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if found {
		if version > settingsDocVersion {
			slog.Warn("settings document is newer than this build; reading anyway",
				"stored_version", version, "supported_version", settingsDocVersion)
		}
		s.settings = persisted
	}
	return s, nil
}

// Settings returns a snapshot of the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update shallow-merges the provided fields into the current settings and
// persists the result. In-flight requests keep the value they already read.
func (s *Store) Update(p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if p.APIBaseURL != nil {
		next.APIBaseURL = *p.APIBaseURL
	}
	if p.APIToken != nil {
		next.APIToken = *p.APIToken
	}
	if p.DefaultModel != nil {
		next.DefaultModel = *p.DefaultModel
	}
	if p.DefaultTemperature != nil {
		next.DefaultTemperature = *p.DefaultTemperature
	}
	if p.Timezone != nil {
		next.Timezone = *p.Timezone
	}
	if p.EnableLiveLogs != nil {
		next.EnableLiveLogs = *p.EnableLiveLogs
	}

	if err := s.db.SaveDocument(settingsDocName, settingsDocVersion, next); err != nil {
		return s.settings, fmt.Errorf("persisting settings: %w", err)
	}
	s.settings = next
	return next, nil
}

// Reset restores environment-derived defaults and persists them.
func (s *Store) Reset() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Defaults()
	if err := s.db.SaveDocument(settingsDocName, settingsDocVersion, next); err != nil {
		return s.settings, fmt.Errorf("persisting settings: %w", err)
	}
	s.settings = next
	return next, nil
}

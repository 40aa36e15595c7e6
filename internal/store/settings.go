// Package store persists the two flat JSON documents: the singleton settings
// record and the accounts collection. Every mutation rewrites the whole file;
// readers treat a missing file as an empty document and a malformed file as
// an empty document after logging.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dkorchagin/shareup/internal/logging"
	"github.com/dkorchagin/shareup/internal/models"
)

// SettingsStore persists the models.Settings singleton to one JSON file.
type SettingsStore struct {
	path string
	log  logging.Logger
	mu   sync.Mutex
}

func NewSettingsStore(path string, log logging.Logger) *SettingsStore {
	return &SettingsStore{path: path, log: log}
}

// Load reads the settings document. A missing or unreadable file yields the
// zero document, never an error: the bot falls back to the unconfigured state.
func (s *SettingsStore) Load(ctx context.Context) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *SettingsStore) load(ctx context.Context) models.Settings {
	var settings models.Settings

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error(ctx, "reading settings document", "path", s.path, "error", err)
		}
		return settings
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		s.log.Error(ctx, "malformed settings document, using defaults", "path", s.path, "error", err)
		return models.Settings{}
	}
	return settings
}

// SetFolderName stores the folder name and marks setup completed.
func (s *SettingsStore) SetFolderName(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.load(ctx)
	settings.FolderName = &name
	settings.SetupCompleted = true
	return s.save(settings)
}

// Reset rewrites the settings document to its zero value. Accounts are not
// touched; reset is scoped to settings alone.
func (s *SettingsStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(models.Settings{})
}

func (s *SettingsStore) save(settings models.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

// Package definitions reads the operator's tracking settings document.
// YAML, JSON and commented JSON (.jsonc) files are accepted.
package definitions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// LoadFile parses the settings document at path.
func LoadFile(path string) (tracking.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tracking.Settings{}, fmt.Errorf("failed to read events file %s: %w", path, err)
	}
	settings, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return tracking.Settings{}, fmt.Errorf("failed to parse events file %s: %w", path, err)
	}
	return settings, nil
}

// Parse decodes a settings document. ext selects the format; anything
// that is not .json or .jsonc is read as YAML. A document without an
// enabled key is enabled.
func Parse(data []byte, ext string) (tracking.Settings, error) {
	settings := tracking.Settings{Enabled: true}

	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &settings); err != nil {
			return tracking.Settings{}, err
		}
	default:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return tracking.Settings{}, err
		}
	}

	for i, def := range settings.Events {
		if err := def.Validate(); err != nil {
			return tracking.Settings{}, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return settings, nil
}

// Store holds the current settings and reloads them from disk on demand.
type Store struct {
	path     string
	logger   *logging.ChanneledLogger
	mu       sync.RWMutex
	settings tracking.Settings
}

// NewStore loads path once. The store keeps serving the last good
// document when a later reload fails.
func NewStore(path string, logger *logging.ChanneledLogger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore serves settings without a backing file.
func NewStaticStore(settings tracking.Settings) *Store {
	return &Store{settings: settings}
}

// Reload rereads the backing file.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	settings, err := LoadFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Tracking().Info("Event definitions loaded",
			"path", s.path,
			"events", len(settings.Events),
			"enabled", bool(settings.Enabled),
			"debugMode", bool(settings.DebugMode))
	}
	return nil
}

// Settings returns the current document.
func (s *Store) Settings() tracking.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

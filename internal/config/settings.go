package config

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/whatsit-app/whatsit/internal/models"
)

// LoadSettings loads settings from path. If the file doesn't exist, returns
// default settings. migrated reports that a legacy key was moved and the
// file should be rewritten.
func LoadSettings(path string) (settings *models.Settings, migrated bool, err error) {
	settings, err = LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, false, err
	}

	if legacy := settings.System.LegacyMinimizeToTray; legacy != nil {
		has, err := hasWindowMinimizeToTray(path)
		if err != nil {
			return nil, false, err
		}
		if !has {
			settings.Window.MinimizeToTray = *legacy
		}
		settings.System.LegacyMinimizeToTray = nil
		migrated = true
	}

	settings.Normalize()
	return settings, migrated, nil
}

// hasWindowMinimizeToTray reports whether window.minimize_to_tray is set
// explicitly in the file, as opposed to filled in from defaults.
func hasWindowMinimizeToTray(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	var probe struct {
		Window map[string]interface{} `yaml:"window"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}
	_, ok := probe.Window["minimize_to_tray"]
	return ok, nil
}

// SaveSettings saves settings to path.
func SaveSettings(path string, settings *models.Settings) error {
	return SaveYAML(path, settings)
}

// Store is the configuration provider used by the rest of the application.
// Reads are served from memory; every setter persists immediately.
type Store struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	settings models.Settings
}

// NewStore loads the settings file at path. A missing or unreadable file
// falls back to defaults; the failure is logged, never returned.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:     path,
		logger:   logger,
		settings: *models.NewSettings(),
	}

	loaded, migrated, err := LoadSettings(path)
	if err != nil {
		logger.Warn("Failed to load settings, using defaults", zap.String("path", path), zap.Error(err))
		return s
	}
	s.settings = *loaded

	if migrated || !FileExists(path) {
		if err := SaveSettings(path, loaded); err != nil {
			logger.Warn("Failed to write settings", zap.String("path", path), zap.Error(err))
		} else if migrated {
			logger.Info("Migrated legacy settings", zap.String("path", path))
		}
	}
	return s
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Reload re-reads the settings file and reports whether anything changed.
// On error the current settings are kept.
func (s *Store) Reload() (bool, error) {
	loaded, _, err := LoadSettings(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if *loaded == s.settings {
		return false, nil
	}
	s.settings = *loaded
	return true, nil
}

func (s *Store) StartMinimizedInTray() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.System.StartMinimizedInTray
}

func (s *Store) MinimizeToTray() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Window.MinimizeToTray
}

func (s *Store) UseLessMemory() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Advanced.UseLessMemory
}

func (s *Store) MemoryLimitGiB() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Advanced.MemoryLimitGiB
}

// MemoryPolicy returns the watchdog policy for the current settings.
func (s *Store) MemoryPolicy() models.MemoryPolicy {
	return models.MemoryPolicy{
		ThresholdGiB: s.MemoryLimitGiB(),
		PollInterval: models.DefaultPollInterval,
	}
}

func (s *Store) SetStartMinimizedInTray(v bool) error {
	return s.update(func(st *models.Settings) { st.System.StartMinimizedInTray = v })
}

func (s *Store) SetMinimizeToTray(v bool) error {
	return s.update(func(st *models.Settings) { st.Window.MinimizeToTray = v })
}

func (s *Store) SetUseLessMemory(v bool) error {
	return s.update(func(st *models.Settings) { st.Advanced.UseLessMemory = v })
}

// SetMemoryLimitGiB sets the watchdog threshold. Negative values disable it.
func (s *Store) SetMemoryLimitGiB(limit int) error {
	if limit < 0 {
		limit = 0
	}
	return s.update(func(st *models.Settings) { st.Advanced.MemoryLimitGiB = limit })
}

// SetWindowSize stores the window size when remember_window_size is enabled.
// Sizes below the default are raised to it.
func (s *Store) SetWindowSize(width, height int) error {
	return s.update(func(st *models.Settings) {
		if !st.Window.RememberWindowSize {
			return
		}
		st.Window.Width = width
		st.Window.Height = height
		st.Normalize()
	})
}

func (s *Store) update(fn func(*models.Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	fn(&next)
	if next == s.settings {
		return nil
	}
	if err := SaveSettings(s.path, &next); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.settings = next
	return nil
}

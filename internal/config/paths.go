// Package config handles configuration loading, saving, and path management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/whatsit-app/whatsit/internal/buildinfo"
)

// File names
const (
	SettingsFileName = "settings.yaml"
	InstanceFileName = "instance.yaml"
	LogFileName      = "whatsit.log"
	ProfileDirName   = "profile"
)

// Paths holds the directories the application reads and writes.
type Paths struct {
	ConfigDir  string // settings and browser profile
	CacheDir   string // log file
	RuntimeDir string // IPC endpoint and instance record
}

// ResolvePaths computes the application directories, honoring env overrides.
func ResolvePaths(env Env) (Paths, error) {
	var p Paths

	p.ConfigDir = env.ConfigDir
	if p.ConfigDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Paths{}, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		p.ConfigDir = filepath.Join(base, buildinfo.AppName)
	}

	p.CacheDir = env.CacheDir
	if p.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return Paths{}, fmt.Errorf("failed to resolve cache dir: %w", err)
		}
		p.CacheDir = filepath.Join(base, buildinfo.AppName)
	}

	p.RuntimeDir = env.RuntimeDir
	if p.RuntimeDir == "" {
		p.RuntimeDir = defaultRuntimeDir()
	}

	return p, nil
}

// defaultRuntimeDir prefers XDG_RUNTIME_DIR, which is per-user and cleared
// at logout, and falls back to a per-uid directory under the temp dir.
func defaultRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, buildinfo.AppName)
	}
	return filepath.Join(os.TempDir(), buildinfo.AppName+"-"+strconv.Itoa(os.Getuid()))
}

// SettingsFile returns the path to the settings.yaml file.
func (p Paths) SettingsFile() string {
	return filepath.Join(p.ConfigDir, SettingsFileName)
}

// InstanceFile returns the path to the instance.yaml file.
func (p Paths) InstanceFile() string {
	return filepath.Join(p.RuntimeDir, InstanceFileName)
}

// LogFile returns the path to the optional log file.
func (p Paths) LogFile() string {
	return filepath.Join(p.CacheDir, LogFileName)
}

// ProfileDir returns the browser profile directory.
func (p Paths) ProfileDir() string {
	return filepath.Join(p.ConfigDir, ProfileDirName)
}

// Ensure creates the config and cache directories. The runtime directory
// is owned by the IPC coordinator, which creates it with private permissions.
func (p Paths) Ensure() error {
	if err := os.MkdirAll(p.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir %s: %w", p.ConfigDir, err)
	}
	if err := os.MkdirAll(p.CacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir %s: %w", p.CacheDir, err)
	}
	return nil
}

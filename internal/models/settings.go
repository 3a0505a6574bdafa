package models

import "math"

// DefaultURL is the page the content host opens when no custom URL is set.
const DefaultURL = "https://web.whatsapp.com"

// Default window geometry.
const (
	DefaultWindowWidth  = 1200
	DefaultWindowHeight = 800
)

// Page zoom bounds. Zoom levels are stored with one decimal.
const (
	DefaultZoomLevel = 1.0
	MinZoomLevel     = 0.3
	MaxZoomLevel     = 5.0
)

// GeneralConfig holds appearance settings.
type GeneralConfig struct {
	PreferDarkMode bool `yaml:"prefer_dark_mode"`
}

// WindowConfig holds window behavior settings.
type WindowConfig struct {
	MinimizeToTray     bool    `yaml:"minimize_to_tray"`
	RememberWindowSize bool    `yaml:"remember_window_size"`
	MaximizedByDefault bool    `yaml:"maximized_by_default"`
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	ZoomLevel          float64 `yaml:"zoom_level"`
}

// SystemConfig holds startup settings.
type SystemConfig struct {
	StartMinimizedInTray bool `yaml:"start_minimized_in_tray"`

	// LegacyMinimizeToTray is the pre-1.0 location of window.minimize_to_tray.
	// It is only read for migration and never written back.
	LegacyMinimizeToTray *bool `yaml:"minimize_to_tray,omitempty"`
}

// DownloadsConfig holds where downloads are saved.
type DownloadsConfig struct {
	Path string `yaml:"path"` // empty = Chromium's own download handling
}

// AdvancedConfig holds memory related settings.
type AdvancedConfig struct {
	UseLessMemory  bool `yaml:"use_less_memory"`
	MemoryLimitGiB int  `yaml:"memory_limit_gib"` // 0 = watchdog disabled
}

// DebugConfig holds diagnostics settings.
type DebugConfig struct {
	EnableFileLogging bool   `yaml:"enable_file_logging"`
	LogLevel          string `yaml:"log_level"`    // "debug" | "info" | "warn" | "error"
	MetricsAddr       string `yaml:"metrics_addr"` // loopback host:port, empty = disabled
}

// CustomConfig holds user overrides of the page and tray icon.
type CustomConfig struct {
	URL      string `yaml:"url"`
	TrayIcon string `yaml:"tray_icon"` // path to a PNG/ICO file, empty = built-in
}

// Settings represents the application settings.
// This corresponds to <config dir>/settings.yaml.
type Settings struct {
	Version   int             `yaml:"version"`
	General   GeneralConfig   `yaml:"general"`
	Window    WindowConfig    `yaml:"window"`
	System    SystemConfig    `yaml:"system"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Advanced  AdvancedConfig  `yaml:"advanced"`
	Debug     DebugConfig     `yaml:"debug"`
	Custom    CustomConfig    `yaml:"custom"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		General: GeneralConfig{
			PreferDarkMode: false,
		},
		Window: WindowConfig{
			MinimizeToTray:     true,
			RememberWindowSize: true,
			MaximizedByDefault: false,
			Width:              DefaultWindowWidth,
			Height:             DefaultWindowHeight,
			ZoomLevel:          DefaultZoomLevel,
		},
		System: SystemConfig{
			StartMinimizedInTray: false,
		},
		Advanced: AdvancedConfig{
			UseLessMemory:  false,
			MemoryLimitGiB: 0,
		},
		Debug: DebugConfig{
			EnableFileLogging: false,
			LogLevel:          "info",
		},
		Custom: CustomConfig{
			URL: DefaultURL,
		},
	}
}

// Normalize replaces out-of-range values with their defaults.
func (s *Settings) Normalize() {
	if s.Window.Width < DefaultWindowWidth {
		s.Window.Width = DefaultWindowWidth
	}
	if s.Window.Height < DefaultWindowHeight {
		s.Window.Height = DefaultWindowHeight
	}
	s.Window.ZoomLevel = RoundZoom(s.Window.ZoomLevel)
	if s.Advanced.MemoryLimitGiB < 0 {
		s.Advanced.MemoryLimitGiB = 0
	}
	if s.Custom.URL == "" {
		s.Custom.URL = DefaultURL
	}
	if s.Debug.LogLevel == "" {
		s.Debug.LogLevel = "info"
	}
}

// RoundZoom rounds a zoom level to one decimal and clamps it to the
// supported range. Zero means unset and maps to the default.
func RoundZoom(level float64) float64 {
	if level == 0 || math.IsNaN(level) {
		return DefaultZoomLevel
	}
	level = math.Round(level*10) / 10
	return math.Min(math.Max(level, MinZoomLevel), MaxZoomLevel)
}

package browser

import (
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whatsit-app/whatsit/internal/models"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.defaults()

	assert.Equal(t, models.DefaultURL, cfg.BaseURL)
	assert.Equal(t, models.DefaultWindowWidth, cfg.Width)
	assert.Equal(t, models.DefaultWindowHeight, cfg.Height)
	assert.Equal(t, 30*time.Second, cfg.LaunchTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.InDelta(t, models.DefaultZoomLevel, cfg.ZoomLevel, 1e-9)
	assert.NotNil(t, cfg.Logger)
}

func TestNewLauncherAppMode(t *testing.T) {
	cfg := Config{
		BaseURL:    "https://web.whatsapp.com",
		ProfileDir: "/tmp/whatsit-profile",
		Width:      1300,
		Height:     900,
	}
	cfg.defaults()

	l := newLauncher(cfg, "/usr/bin/chromium", cfg.BaseURL)

	assert.Equal(t, "https://web.whatsapp.com", l.Get("app"))
	assert.Equal(t, "1300,900", l.Get("window-size"))
	assert.Equal(t, "/tmp/whatsit-profile", l.Get("user-data-dir"))
	assert.False(t, l.Has("headless"))
	assert.False(t, l.Has("no-startup-window"))
	assert.False(t, l.Has("start-maximized"))
}

func TestNewLauncherMaximized(t *testing.T) {
	cfg := Config{Maximized: true}
	cfg.defaults()

	l := newLauncher(cfg, "/usr/bin/chromium", cfg.BaseURL)

	assert.True(t, l.Has("start-maximized"))
}

func TestNewLauncherStartsOnPendingURL(t *testing.T) {
	cfg := Config{}
	cfg.defaults()

	l := newLauncher(cfg, "/usr/bin/chromium", "https://web.whatsapp.com/send?phone=1")

	assert.Equal(t, "https://web.whatsapp.com/send?phone=1", l.Get("app"))
}

func TestHostWithoutBrowser(t *testing.T) {
	h := New(Config{})

	assert.False(t, h.IsVisible())
	assert.False(t, h.IsActive())
	assert.False(t, h.IsMinimized())
	require.NoError(t, h.Hide())
	require.NoError(t, h.Restore())
	require.NoError(t, h.Suspend())
	require.NoError(t, h.Resume())
	require.NoError(t, h.SaveGeometry())
	assert.Error(t, h.Focus())
	require.NoError(t, h.Close())
}

func bounds(state proto.BrowserWindowState, width, height int) *proto.BrowserBounds {
	return &proto.BrowserBounds{WindowState: state, Width: &width, Height: &height}
}

func TestObserveReportsOutsideChanges(t *testing.T) {
	h := New(Config{})

	tests := []struct {
		name    string
		state   proto.BrowserWindowState
		change  WindowChange
		changed bool
	}{
		{"first observation", proto.BrowserWindowStateNormal, 0, false},
		{"still normal", proto.BrowserWindowStateNormal, 0, false},
		{"minimized", proto.BrowserWindowStateMinimized, WindowMinimized, true},
		{"still minimized", proto.BrowserWindowStateMinimized, 0, false},
		{"restored maximized", proto.BrowserWindowStateMaximized, WindowRestored, true},
		{"normal again", proto.BrowserWindowStateNormal, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, changed := h.observeLocked(bounds(tt.state, 1300, 900))
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.change, change)
		})
	}
}

func TestObserveAfterHostMinimizeIsQuiet(t *testing.T) {
	h := New(Config{})
	h.observeLocked(bounds(proto.BrowserWindowStateNormal, 1300, 900))

	// The host minimized the window itself (Hide).
	h.windowState = proto.BrowserWindowStateMinimized
	_, changed := h.observeLocked(bounds(proto.BrowserWindowStateMinimized, 1300, 900))
	assert.False(t, changed)

	change, changed := h.observeLocked(bounds(proto.BrowserWindowStateNormal, 1300, 900))
	assert.True(t, changed)
	assert.Equal(t, WindowRestored, change)
}

func TestSaveGeometryAfterWindowClosed(t *testing.T) {
	var saved [2]int
	h := New(Config{OnResize: func(width, height int) error {
		saved = [2]int{width, height}
		return nil
	}})

	h.observeLocked(bounds(proto.BrowserWindowStateNormal, 1400, 950))
	// Sizes of a minimized window are not remembered.
	h.observeLocked(bounds(proto.BrowserWindowStateMinimized, 160, 30))
	h.cleanupLocked()

	require.NoError(t, h.SaveGeometry())
	assert.Equal(t, [2]int{1400, 950}, saved)
}

func TestSaveGeometryWithoutKnownSize(t *testing.T) {
	called := false
	h := New(Config{OnResize: func(int, int) error {
		called = true
		return nil
	}})

	require.NoError(t, h.SaveGeometry())
	assert.False(t, called)
}

func TestThemeScript(t *testing.T) {
	dark := themeScript(true, 1.3)
	assert.Contains(t, dark, `const mode = "dark";`)
	assert.Contains(t, dark, "const zoom = 1.3;")

	light := themeScript(false, 0)
	assert.Contains(t, light, `const mode = "light";`)
	assert.Contains(t, light, "const zoom = 1;")
	assert.True(t, strings.HasPrefix(light, "() => {"))
}

func TestColorScheme(t *testing.T) {
	req := colorScheme(true)
	require.Len(t, req.Features, 1)
	assert.Equal(t, "prefers-color-scheme", req.Features[0].Name)
	assert.Equal(t, "dark", req.Features[0].Value)
	assert.Equal(t, "light", colorScheme(false).Features[0].Value)
}

func TestDownloadBehavior(t *testing.T) {
	_, ok := downloadBehavior("")
	assert.False(t, ok)

	req, ok := downloadBehavior("/home/me/Downloads/whatsit")
	require.True(t, ok)
	assert.Equal(t, proto.BrowserSetDownloadBehaviorBehaviorAllow, req.Behavior)
	assert.Equal(t, "/home/me/Downloads/whatsit", req.DownloadPath)
	assert.True(t, req.EventsEnabled)
}

func TestQuitShortcutIsCoalesced(t *testing.T) {
	h := New(Config{})
	h.requestQuit()
	h.requestQuit()

	select {
	case <-h.QuitRequested():
	default:
		t.Fatal("expected a quit request")
	}
	select {
	case <-h.QuitRequested():
		t.Fatal("expected a single quit request")
	default:
	}
}

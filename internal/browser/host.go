// Package browser hosts the web content in a Chromium app-mode window
// driven over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/models"
)

// ErrNoBrowser is returned when no Chromium binary can be found.
var ErrNoBrowser = errors.New("no chromium-based browser found")

// Config configures a Host.
type Config struct {
	BaseURL    string
	Bin        string // browser executable; looked up when empty
	ProfileDir string
	Width      int
	Height     int
	Maximized  bool

	PreferDarkMode bool
	ZoomLevel      float64
	DownloadPath   string // empty = Chromium decides

	LaunchTimeout time.Duration
	NavTimeout    time.Duration

	// PollInterval is how often the window state is checked for
	// minimize/restore done through the window manager.
	PollInterval time.Duration

	Logger *zap.Logger

	// OnNavigated is called once a page loaded through Navigate finishes
	// loading.
	OnNavigated func(url string)
	// OnResize receives the window size when geometry is saved.
	OnResize func(width, height int) error
	// PendingURL reports a URL waiting to be shown. A relaunched window
	// opens on it instead of the base URL.
	PendingURL func() (string, bool)
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = models.DefaultURL
	}
	if c.Width <= 0 {
		c.Width = models.DefaultWindowWidth
	}
	if c.Height <= 0 {
		c.Height = models.DefaultWindowHeight
	}
	if c.LaunchTimeout <= 0 {
		c.LaunchTimeout = 30 * time.Second
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.ZoomLevel <= 0 {
		c.ZoomLevel = models.DefaultZoomLevel
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// WindowChange is a minimize or restore done outside the host, usually
// through the window manager or taskbar.
type WindowChange int

const (
	WindowMinimized WindowChange = iota + 1
	WindowRestored
)

func (c WindowChange) String() string {
	switch c {
	case WindowMinimized:
		return "minimized"
	case WindowRestored:
		return "restored"
	default:
		return "unknown"
	}
}

// Host owns the Chromium process and its single app window. It implements
// lifecycle.Window and lifecycle.ContentHost. When the user closes the
// window Chromium exits; the next Show launches it again.
type Host struct {
	cfg Config
	log *zap.Logger

	mu        sync.Mutex
	lnch      *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	windowID  proto.BrowserWindowID
	visible   bool
	suspended bool
	closing   bool

	// windowState is the last state seen or set by the host. Empty until
	// the first observation after a launch.
	windowState proto.BrowserWindowState
	// width and height are the last normal-state size, kept so geometry
	// can be saved after the window is gone.
	width, height int
	// landing is the URL a relaunched window opened on.
	landing string

	closed  chan struct{}
	changes chan WindowChange
	quit    chan struct{}
}

// New creates a host. Call Start to launch the browser.
func New(cfg Config) *Host {
	cfg.defaults()
	return &Host{
		cfg:     cfg,
		log:     cfg.Logger.Named("browser"),
		closed:  make(chan struct{}, 1),
		changes: make(chan WindowChange, 8),
		quit:    make(chan struct{}, 1),
	}
}

// Closed delivers a notification each time the user closes the window.
func (h *Host) Closed() <-chan struct{} {
	return h.closed
}

// Changes delivers minimize and restore transitions the host did not
// request itself.
func (h *Host) Changes() <-chan WindowChange {
	return h.changes
}

// QuitRequested delivers a notification when the quit shortcut is pressed
// in the page.
func (h *Host) QuitRequested() <-chan struct{} {
	return h.quit
}

// Start launches the browser. visible controls whether the window is left
// on screen or minimized right away.
func (h *Host) Start(ctx context.Context, visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.launchLocked(ctx, h.cfg.BaseURL); err != nil {
		return err
	}
	if !visible {
		if err := h.setWindowStateLocked(proto.BrowserWindowStateMinimized); err != nil {
			h.log.Warn("Failed to minimize window", zap.Error(err))
		}
	}
	h.visible = visible
	return nil
}

// Close shuts the browser down.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closing = true
	h.cleanupLocked()
	return nil
}

func (h *Host) launchLocked(ctx context.Context, startURL string) error {
	bin := h.cfg.Bin
	if bin == "" {
		path, ok := launcher.LookPath()
		if !ok {
			return ErrNoBrowser
		}
		bin = path
	}

	l := newLauncher(h.cfg, bin, startURL)
	u, err := l.Context(ctx).Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := waitAppPage(ctx, b, h.cfg.LaunchTimeout)
	if err != nil {
		_ = b.Close()
		l.Kill()
		return err
	}

	h.preparePage(b, page)

	win, err := proto.BrowserGetWindowForTarget{TargetID: page.TargetID}.Call(b)
	if err != nil {
		_ = b.Close()
		l.Kill()
		return fmt.Errorf("failed to get browser window: %w", err)
	}

	h.lnch = l
	h.browser = b
	h.page = page
	h.windowID = win.WindowID
	h.suspended = false
	h.windowState = ""
	if bounds, err := h.getBoundsLocked(); err == nil {
		h.observeLocked(bounds)
	}

	go h.watchClose(b, page.TargetID)
	go h.watchWindow(b)

	h.log.Info("Browser launched", zap.String("bin", bin), zap.String("url", startURL))
	return nil
}

// newLauncher builds the launcher for an app-mode window on startURL.
func newLauncher(cfg Config, bin, startURL string) *launcher.Launcher {
	l := launcher.New().
		Bin(bin).
		Headless(false).
		Set("app", startURL).
		Set("window-size", fmt.Sprintf("%d,%d", cfg.Width, cfg.Height)).
		Delete("no-startup-window").
		Delete("enable-automation")
	if cfg.ProfileDir != "" {
		l = l.UserDataDir(cfg.ProfileDir)
	}
	if cfg.Maximized {
		l = l.Set("start-maximized")
	}
	return l
}

// waitAppPage returns the page Chromium opened for --app.
func waitAppPage(ctx context.Context, b *rod.Browser, timeout time.Duration) (*rod.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		pages, err := b.Pages()
		if err == nil && len(pages) > 0 {
			return pages.First(), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("app window did not open: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// watchClose reports a user close once the app page target goes away or
// the browser connection drops.
func (h *Host) watchClose(b *rod.Browser, target proto.TargetTargetID) {
	done := make(chan struct{})
	var once sync.Once

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		h.log.Debug("Failed to enable target discovery", zap.Error(err))
	}
	wait := b.EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		if e.TargetID == target {
			once.Do(func() { close(done) })
			return true
		}
		return false
	})
	go func() {
		wait()
		once.Do(func() { close(done) })
	}()
	<-done

	h.mu.Lock()
	current := h.browser == b
	closing := h.closing
	if current {
		h.cleanupLocked()
	}
	h.mu.Unlock()

	if !current || closing {
		return
	}
	h.log.Info("Window closed by user")
	select {
	case h.closed <- struct{}{}:
	default:
	}
}

func (h *Host) cleanupLocked() {
	if h.browser != nil {
		_ = h.browser.Close()
		h.browser = nil
	}
	if h.lnch != nil {
		h.lnch.Cleanup()
		h.lnch = nil
	}
	h.page = nil
	h.visible = false
	h.suspended = false
	h.windowState = ""
	h.landing = ""
}

// ensureLocked relaunches the browser if the window was closed. A pending
// URL becomes the start page of the new window.
func (h *Host) ensureLocked() error {
	if h.page != nil {
		return nil
	}
	if h.closing {
		return errors.New("browser host is closed")
	}

	start := h.cfg.BaseURL
	if h.cfg.PendingURL != nil {
		if u, ok := h.cfg.PendingURL(); ok {
			start = u
		}
	}
	h.log.Info("Relaunching browser", zap.String("url", start))
	if err := h.launchLocked(context.Background(), start); err != nil {
		return err
	}
	if start != h.cfg.BaseURL {
		h.landing = start
		go h.notifyLoaded(h.page.Timeout(h.cfg.NavTimeout), start)
	}
	return nil
}

// watchWindow polls the window state while b is the current browser and
// reports minimize/restore transitions made outside the host.
func (h *Host) watchWindow(b *rod.Browser) {
	ticker := time.NewTicker(h.cfg.PollInterval)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.Lock()
		if h.browser != b {
			h.mu.Unlock()
			return
		}
		var (
			change  WindowChange
			changed bool
		)
		if bounds, err := h.getBoundsLocked(); err == nil {
			change, changed = h.observeLocked(bounds)
		}
		h.mu.Unlock()

		if changed {
			h.emit(change)
		}
	}
}

// observeLocked records the window state and size and reports whether the
// minimized flag flipped since the host last saw or set it.
func (h *Host) observeLocked(b *proto.BrowserBounds) (WindowChange, bool) {
	h.rememberSizeLocked(b)

	prev := h.windowState
	h.windowState = b.WindowState
	if prev == "" {
		return 0, false
	}
	wasMinimized := prev == proto.BrowserWindowStateMinimized
	isMinimized := b.WindowState == proto.BrowserWindowStateMinimized
	switch {
	case isMinimized && !wasMinimized:
		return WindowMinimized, true
	case wasMinimized && !isMinimized:
		return WindowRestored, true
	default:
		return 0, false
	}
}

func (h *Host) rememberSizeLocked(b *proto.BrowserBounds) {
	if b.WindowState != proto.BrowserWindowStateNormal || b.Width == nil || b.Height == nil {
		return
	}
	h.width, h.height = *b.Width, *b.Height
}

func (h *Host) emit(change WindowChange) {
	h.log.Debug("Window state changed", zap.Stringer("change", change))
	select {
	case h.changes <- change:
	default:
		h.log.Warn("Dropping window state change", zap.Stringer("change", change))
	}
}

func (h *Host) getBoundsLocked() (*proto.BrowserBounds, error) {
	if h.browser == nil {
		return nil, errors.New("browser not running")
	}
	res, err := proto.BrowserGetWindowBounds{WindowID: h.windowID}.Call(h.browser)
	if err != nil {
		return nil, err
	}
	return res.Bounds, nil
}

func (h *Host) setWindowStateLocked(state proto.BrowserWindowState) error {
	if h.browser == nil {
		return errors.New("browser not running")
	}
	err := proto.BrowserSetWindowBounds{
		WindowID: h.windowID,
		Bounds:   &proto.BrowserBounds{WindowState: state},
	}.Call(h.browser)
	if err != nil {
		return err
	}
	h.windowState = state
	return nil
}

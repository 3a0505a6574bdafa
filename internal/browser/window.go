package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const focusProbeTimeout = 2 * time.Second

// IsMinimized reports whether the window manager has iconified the window.
func (h *Host) IsMinimized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, err := h.getBoundsLocked()
	if err != nil {
		return false
	}
	return b.WindowState == proto.BrowserWindowStateMinimized
}

func (h *Host) IsVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.page != nil && h.visible
}

// IsActive reports whether the page has input focus.
func (h *Host) IsActive() bool {
	h.mu.Lock()
	page := h.page
	h.mu.Unlock()
	if page == nil {
		return false
	}
	res, err := page.Timeout(focusProbeTimeout).Eval(`() => document.hasFocus()`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// Restore brings a minimized window back to its normal state.
func (h *Host) Restore() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.page == nil {
		return nil
	}
	return h.setWindowStateLocked(proto.BrowserWindowStateNormal)
}

// Show puts the window on screen, relaunching the browser if needed.
func (h *Host) Show() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureLocked(); err != nil {
		return err
	}
	b, err := h.getBoundsLocked()
	if err != nil {
		return err
	}
	if b.WindowState == proto.BrowserWindowStateMinimized {
		if err := h.setWindowStateLocked(proto.BrowserWindowStateNormal); err != nil {
			return err
		}
	}
	h.visible = true
	return nil
}

// Focus activates the app page target.
func (h *Host) Focus() error {
	h.mu.Lock()
	page := h.page
	h.mu.Unlock()
	if page == nil {
		return errors.New("browser not running")
	}
	_, err := page.Activate()
	return err
}

// Hide minimizes the window. DevTools cannot unmap a window, so a hidden
// window is an iconified one that the application treats as hidden.
func (h *Host) Hide() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = false
	if h.page == nil {
		return nil
	}
	if b, err := h.getBoundsLocked(); err == nil {
		h.rememberSizeLocked(b)
	}
	return h.setWindowStateLocked(proto.BrowserWindowStateMinimized)
}

// SaveGeometry hands the normal-state window size to OnResize. Once the
// window is gone the last size seen while it was open is used.
func (h *Host) SaveGeometry() error {
	h.mu.Lock()
	if b, err := h.getBoundsLocked(); err == nil {
		h.rememberSizeLocked(b)
	}
	width, height := h.width, h.height
	h.mu.Unlock()

	if h.cfg.OnResize == nil || width <= 0 || height <= 0 {
		return nil
	}
	if err := h.cfg.OnResize(width, height); err != nil {
		return fmt.Errorf("failed to save window size: %w", err)
	}
	h.log.Debug("Window size saved", zap.Int("width", width), zap.Int("height", height))
	return nil
}

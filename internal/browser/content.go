package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Navigate loads url in the app page. OnNavigated fires once the load
// completes.
func (h *Host) Navigate(url string) error {
	h.mu.Lock()
	if err := h.ensureLocked(); err != nil {
		h.mu.Unlock()
		return err
	}
	page := h.page.Timeout(h.cfg.NavTimeout)
	landed := h.landing == url
	h.landing = ""
	h.mu.Unlock()

	// A window relaunched on url is already loading it.
	if landed {
		return nil
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	go h.notifyLoaded(page, url)
	return nil
}

func (h *Host) notifyLoaded(page *rod.Page, url string) {
	if err := page.WaitLoad(); err != nil {
		h.log.Warn("Page did not finish loading", zap.String("url", url), zap.Error(err))
		return
	}
	if h.cfg.OnNavigated != nil {
		h.cfg.OnNavigated(url)
	}
}

// Suspend freezes the page so it stops running scripts and timers and
// lets Chromium discard caches.
func (h *Host) Suspend() error {
	return h.setLifecycle(proto.PageSetWebLifecycleStateStateFrozen, true)
}

// Resume thaws a frozen page.
func (h *Host) Resume() error {
	return h.setLifecycle(proto.PageSetWebLifecycleStateStateActive, false)
}

func (h *Host) setLifecycle(state proto.PageSetWebLifecycleStateState, suspended bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.page == nil || h.suspended == suspended {
		return nil
	}
	if err := (proto.PageSetWebLifecycleState{State: state}).Call(h.page); err != nil {
		return fmt.Errorf("failed to set page lifecycle %s: %w", state, err)
	}
	h.suspended = suspended
	return nil
}

package browser

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// quitBinding is called from the page when the quit shortcut is pressed.
const quitBinding = "__whatsit_quit"

// quitKeyScript binds Ctrl+Q (Cmd+Q on macOS) to the quit binding.
const quitKeyScript = `() => {
	if (window.__whatsitQuitKey) return;
	window.__whatsitQuitKey = true;
	window.addEventListener('keydown', (e) => {
		if ((e.ctrlKey || e.metaKey) && !e.altKey && !e.shiftKey && e.key.toLowerCase() === 'q') {
			e.preventDefault();
			window.` + quitBinding + `('');
		}
	}, true);
}`

// themeScriptFormat keeps the page theme and zoom pinned while the page
// switches classes on its own. Arguments: mode, zoom.
const themeScriptFormat = `() => {
	const mode = %q;
	const zoom = %s;
	const apply = () => {
		const body = document.body;
		if (!body) return;
		body.classList.toggle('dark', mode === 'dark');
		body.setAttribute('data-theme', mode);
		try { localStorage.setItem('theme', JSON.stringify(mode)); } catch (e) {}
		if (zoom !== 1) document.documentElement.style.zoom = String(zoom);
	};
	const watch = () => {
		apply();
		new MutationObserver(() => {
			if (document.body.classList.contains('dark') !== (mode === 'dark')) apply();
		}).observe(document.body, { attributes: true, attributeFilter: ['class'] });
	};
	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', watch);
	} else {
		watch();
	}
}`

// themeScript returns the theme and zoom script for the settings.
func themeScript(dark bool, zoom float64) string {
	mode := "light"
	if dark {
		mode = "dark"
	}
	if zoom <= 0 {
		zoom = 1
	}
	return fmt.Sprintf(themeScriptFormat, mode, strconv.FormatFloat(zoom, 'f', -1, 64))
}

// colorScheme is the emulated prefers-color-scheme media feature.
func colorScheme(dark bool) proto.EmulationSetEmulatedMedia {
	value := "light"
	if dark {
		value = "dark"
	}
	return proto.EmulationSetEmulatedMedia{
		Features: []*proto.EmulationMediaFeature{{Name: "prefers-color-scheme", Value: value}},
	}
}

// downloadBehavior routes downloads into dir. An empty dir leaves
// Chromium's own download handling in place.
func downloadBehavior(dir string) (proto.BrowserSetDownloadBehavior, bool) {
	if dir == "" {
		return proto.BrowserSetDownloadBehavior{}, false
	}
	return proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  dir,
		EventsEnabled: true,
	}, true
}

// preparePage installs the page scripts, the quit binding and the download
// and color-scheme settings. Failures are logged; the page stays usable.
func (h *Host) preparePage(b *rod.Browser, page *rod.Page) {
	scripts := []string{
		stealth.JS,
		"(" + themeScript(h.cfg.PreferDarkMode, h.cfg.ZoomLevel) + ")()",
		"(" + quitKeyScript + ")()",
	}
	for _, js := range scripts {
		if _, err := page.EvalOnNewDocument(js); err != nil {
			h.log.Warn("Failed to install page script", zap.Error(err))
		}
	}

	if err := (proto.RuntimeAddBinding{Name: quitBinding}).Call(page); err != nil {
		h.log.Warn("Failed to add quit binding", zap.Error(err))
	}
	go page.EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name == quitBinding {
			h.requestQuit()
		}
	})()

	// The app page has already started loading; apply to it as well.
	for _, js := range []string{themeScript(h.cfg.PreferDarkMode, h.cfg.ZoomLevel), quitKeyScript} {
		if _, err := page.Eval(js); err != nil {
			h.log.Debug("Failed to apply page script", zap.Error(err))
		}
	}

	if err := colorScheme(h.cfg.PreferDarkMode).Call(page); err != nil {
		h.log.Debug("Failed to set color scheme", zap.Error(err))
	}

	if req, ok := downloadBehavior(h.cfg.DownloadPath); ok {
		if err := os.MkdirAll(req.DownloadPath, 0o755); err != nil {
			h.log.Warn("Failed to create download directory", zap.String("path", req.DownloadPath), zap.Error(err))
		}
		if err := req.Call(b); err != nil {
			h.log.Warn("Failed to set download directory", zap.Error(err))
		} else {
			go h.watchDownloads(b)
		}
	}
}

func (h *Host) watchDownloads(b *rod.Browser) {
	names := map[string]string{}
	b.EachEvent(func(e *proto.BrowserDownloadWillBegin) {
		names[e.GUID] = e.SuggestedFilename
		h.log.Info("Download started", zap.String("file", e.SuggestedFilename))
	}, func(e *proto.BrowserDownloadProgress) {
		switch e.State {
		case proto.BrowserDownloadProgressStateCompleted:
			h.log.Info("Download finished", zap.String("file", names[e.GUID]), zap.String("dir", h.cfg.DownloadPath))
			delete(names, e.GUID)
		case proto.BrowserDownloadProgressStateCanceled:
			h.log.Info("Download canceled", zap.String("file", names[e.GUID]))
			delete(names, e.GUID)
		}
	})()
}

func (h *Host) requestQuit() {
	h.log.Info("Quit shortcut pressed")
	select {
	case h.quit <- struct{}{}:
	default:
	}
}

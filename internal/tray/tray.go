package tray

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/buildinfo"
)

// ErrNoIcon is returned when the tray icon resource is unusable.
var ErrNoIcon = errors.New("tray icon resource is missing")

var (
	icon     []byte
	settings Settings
	actions  Actions
	onStart  func()
	onExit   func()
	logger   = zap.NewNop()

	showItem        *systray.MenuItem
	hideItem        *systray.MenuItem
	minimizeItem    *systray.MenuItem
	startHiddenItem *systray.MenuItem
	memoryItem      *systray.MenuItem
	memoryItems     []*systray.MenuItem
	quitItem        *systray.MenuItem

	ready   bool
	readyMu sync.Mutex
)

// LoadIcon returns the icon at path, or the built-in icon when path is empty.
func LoadIcon(path string) ([]byte, error) {
	if path == "" {
		if len(iconData) == 0 {
			return nil, ErrNoIcon
		}
		return iconData, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoIcon, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoIcon, path)
	}
	return data, nil
}

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStartFn is called when the tray is ready.
// onExitFn is called when the tray exits (cleanup here).
func Run(iconBytes []byte, s Settings, a Actions, log *zap.Logger, onStartFn, onExitFn func()) error {
	if len(iconBytes) == 0 {
		return ErrNoIcon
	}
	icon = iconBytes
	settings = s
	actions = a
	onStart = onStartFn
	onExit = onExitFn
	if log != nil {
		logger = log.Named("tray")
	}
	systray.Run(onReady, onQuit)
	return nil
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

func onReady() {
	systray.SetTemplateIcon(icon, icon)
	systray.SetTitle("")
	systray.SetTooltip(formatTooltip(buildinfo.AppName, settings.MemoryLimitGiB()))

	showItem = systray.AddMenuItem("Show", "Show the window")
	hideItem = systray.AddMenuItem("Hide", "Hide the window to the tray")

	systray.AddSeparator()

	minimizeItem = systray.AddMenuItem("Minimize to tray on close", "Closing the window keeps the app running")
	startHiddenItem = systray.AddMenuItem("Start hidden", "Start minimized in the tray")

	memoryItem = systray.AddMenuItem("Memory limit", "Quit when memory use exceeds the limit")
	memoryItems = make([]*systray.MenuItem, len(MemoryLimits))
	for i, gib := range MemoryLimits {
		memoryItems[i] = memoryItem.AddSubMenuItem(memoryLimitTitle(gib), "")
	}

	systray.AddSeparator()

	quitItem = systray.AddMenuItem("Quit", "Quit "+buildinfo.AppName)

	readyMu.Lock()
	ready = true
	readyMu.Unlock()
	Refresh()

	if onStart != nil {
		onStart()
	}

	go handleClicks()
}

func onQuit() {
	readyMu.Lock()
	ready = false
	readyMu.Unlock()
	if onExit != nil {
		onExit()
	}
}

// Refresh updates check marks and the tooltip from the current settings.
func Refresh() {
	readyMu.Lock()
	defer readyMu.Unlock()
	if !ready || settings == nil {
		return
	}

	setChecked(minimizeItem, settings.MinimizeToTray())
	setChecked(startHiddenItem, settings.StartMinimizedInTray())

	gib := settings.MemoryLimitGiB()
	selected := memoryLimitIndex(gib)
	for i, item := range memoryItems {
		setChecked(item, i == selected)
	}
	systray.SetTooltip(formatTooltip(buildinfo.AppName, gib))
}

func setChecked(item *systray.MenuItem, checked bool) {
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func handleClicks() {
	memoryClicks := make(chan int)
	for i, item := range memoryItems {
		go func(i int, item *systray.MenuItem) {
			for range item.ClickedCh {
				memoryClicks <- i
			}
		}(i, item)
	}

	for {
		select {
		case <-showItem.ClickedCh:
			actions.Show()

		case <-hideItem.ClickedCh:
			actions.Hide()

		case <-minimizeItem.ClickedCh:
			enabled := !minimizeItem.Checked()
			logger.Info("Minimize to tray toggled", zap.Bool("enabled", enabled))
			actions.SetMinimizeToTray(enabled)
			Refresh()

		case <-startHiddenItem.ClickedCh:
			enabled := !startHiddenItem.Checked()
			logger.Info("Start hidden toggled", zap.Bool("enabled", enabled))
			actions.SetStartMinimizedInTray(enabled)
			Refresh()

		case i := <-memoryClicks:
			gib := MemoryLimits[i]
			logger.Info("Memory limit selected", zap.Int("gib", gib))
			actions.SetMemoryLimitGiB(gib)
			Refresh()

		case <-quitItem.ClickedCh:
			actions.Quit()
			return
		}
	}
}

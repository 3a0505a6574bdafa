package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/browser"
	"github.com/whatsit-app/whatsit/internal/buildinfo"
	"github.com/whatsit-app/whatsit/internal/config"
	"github.com/whatsit-app/whatsit/internal/ipc"
	"github.com/whatsit-app/whatsit/internal/lifecycle"
	"github.com/whatsit-app/whatsit/internal/metrics"
	"github.com/whatsit-app/whatsit/internal/models"
	"github.com/whatsit-app/whatsit/internal/tray"
	"github.com/whatsit-app/whatsit/internal/watcher"
)

// exitFunc ends the process from the memory kill switch.
var exitFunc = os.Exit

// Options configures Run.
type Options struct {
	Args   lifecycle.LaunchArgs
	NoTray bool
	Paths  config.Paths
	Env    config.Env
	Logger *zap.Logger
	Stderr io.Writer
}

// EndpointName is the application-scoped IPC endpoint name.
const EndpointName = buildinfo.AppName + "-ipc"

// NewCoordinator returns the coordinator for the endpoint in dir.
func NewCoordinator(dir string, logger *zap.Logger, m *metrics.Metrics) *ipc.Coordinator {
	return ipc.New(ipc.Config{
		Name:    EndpointName,
		Dir:     dir,
		Logger:  logger,
		Metrics: m,
	})
}

// Run starts the application, or hands the launch arguments to the running
// primary instance, and returns the process exit code.
func Run(ctx context.Context, opts Options) int {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	m := metrics.New()
	coord := NewCoordinator(opts.Paths.RuntimeDir, log, m)
	if coord.TryNotifyExisting(opts.Args.Command()) {
		log.Info("Handed off to running instance")
		return ExitOK
	}

	store := config.NewStore(opts.Paths.SettingsFile(), log)
	snapshot := store.Snapshot()

	var icon []byte
	if !opts.NoTray {
		var err error
		if icon, err = tray.LoadIcon(snapshot.Custom.TrayIcon); err != nil {
			reportFatal(opts.Stderr, log, fmt.Errorf("%w: %v", ErrFatalEnvironment, err))
			return ExitFatal
		}
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals...)
	defer stop()

	if addr := snapshot.Debug.MetricsAddr; addr != "" {
		go func() {
			if err := m.Serve(ctx, addr, log); err != nil {
				log.Warn("Metrics endpoint unavailable", zap.Error(err))
			}
		}()
	}

	var core *Core
	host := browser.New(browser.Config{
		BaseURL:        snapshot.Custom.URL,
		Bin:            opts.Env.ChromeBin,
		ProfileDir:     opts.Paths.ProfileDir(),
		Width:          snapshot.Window.Width,
		Height:         snapshot.Window.Height,
		Maximized:      snapshot.Window.MaximizedByDefault,
		PreferDarkMode: snapshot.General.PreferDarkMode,
		ZoomLevel:      snapshot.Window.ZoomLevel,
		DownloadPath:   snapshot.Downloads.Path,
		Logger:         log,
		OnNavigated: func(url string) {
			core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventURLConsumed, URL: url})
		},
		OnResize: store.SetWindowSize,
		PendingURL: func() (string, bool) {
			if core == nil {
				return "", false
			}
			return core.Machine.PendingURL()
		},
	})
	defer host.Close()

	core, err := NewCore(CoreOptions{
		Settings:    store,
		Window:      host,
		Host:        host,
		BaseURL:     snapshot.Custom.URL,
		Coordinator: coord,
		Terminate: func(total uint64) {
			killSwitch(opts.Paths, host, core, log, total)
		},
		Logger:  log,
		Metrics: m,
	}, opts.Args)
	if errors.Is(err, ipc.ErrAlreadyRunning) {
		// Lost the race against a concurrent launch.
		coord.TryNotifyExisting(opts.Args.Command())
		return ExitOK
	}
	if err != nil {
		reportFatal(opts.Stderr, log, fmt.Errorf("%w: %v", ErrFatalEnvironment, err))
		return ExitFatal
	}
	defer core.Close()

	writeInstanceRecord(opts.Paths, core, log)
	defer func() {
		if err := config.RemoveInstanceInfo(opts.Paths); err != nil {
			log.Warn("Failed to remove instance record", zap.Error(err))
		}
	}()

	if err := host.Start(ctx, core.InitialState() == lifecycle.StateVisible); err != nil {
		reportFatal(opts.Stderr, log, fmt.Errorf("%w: %v", ErrFatalEnvironment, err))
		return ExitFatal
	}

	w := watchSettings(opts.Paths, store, core, log)
	if w != nil {
		defer w.Stop()
	}

	go forwardWindowEvents(ctx, host, core)
	go forwardSignals(ctx, core)

	if opts.NoTray {
		core.Run(ctx)
		return ExitOK
	}

	go func() {
		core.Run(ctx)
		tray.Quit()
	}()

	actions := &trayActions{store: store, core: core, log: log}
	if err := tray.Run(icon, store, actions, log, nil, nil); err != nil {
		reportFatal(opts.Stderr, log, fmt.Errorf("%w: %v", ErrFatalEnvironment, err))
		core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventForceQuit})
		<-core.Loop.Done()
		return ExitFatal
	}

	// The tray can exit on its own (e.g. the session bus went away).
	core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventForceQuit})
	<-core.Loop.Done()
	return ExitOK
}

func writeInstanceRecord(paths config.Paths, core *Core, log *zap.Logger) {
	prev, err := config.LoadInstanceInfo(paths)
	if err != nil {
		log.Debug("Failed to read previous instance record", zap.Error(err))
	}
	if prev != nil && prev.PID != os.Getpid() && !config.ProcessAlive(prev.PID) {
		log.Info("Previous instance did not shut down cleanly",
			zap.Int("pid", prev.PID),
			zap.String("session_id", prev.SessionID),
			zap.Time("started_at", prev.StartedAt),
			zap.Bool("endpoint_reclaimed", core.ReclaimedStale()))
	}

	info := models.NewInstanceInfo(core.Endpoint(), os.Getpid(), uuid.NewString())
	if err := config.SaveInstanceInfo(paths, info); err != nil {
		log.Warn("Failed to write instance record", zap.Error(err))
		return
	}
	log.Debug("Instance record written", zap.String("session_id", info.SessionID))
}

func watchSettings(paths config.Paths, store *config.Store, core *Core, log *zap.Logger) *watcher.Watcher {
	w, err := watcher.New(paths.ConfigDir, []string{config.SettingsFileName}, log)
	if err != nil {
		log.Warn("Settings watcher unavailable", zap.Error(err))
		return nil
	}
	if err := w.Start(); err != nil {
		log.Warn("Settings watcher unavailable", zap.Error(err))
		w.Stop()
		return nil
	}

	go func() {
		for range w.Events() {
			changed, err := store.Reload()
			if err != nil {
				log.Warn("Failed to reload settings", zap.Error(err))
				continue
			}
			if !changed {
				continue
			}
			log.Info("Settings changed on disk")
			core.Loop.Call(core.PolicyChanged)
			tray.Refresh()
		}
	}()
	return w
}

// windowEvents is the part of the content host that reports what the user
// did to the window.
type windowEvents interface {
	Closed() <-chan struct{}
	Changes() <-chan browser.WindowChange
	QuitRequested() <-chan struct{}
}

func forwardWindowEvents(ctx context.Context, w windowEvents, core *Core) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-core.Loop.Done():
			return
		case <-w.Closed():
			core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventCloseRequested})
		case <-w.QuitRequested():
			core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventQuitShortcut})
		case change := <-w.Changes():
			kind := lifecycle.EventRestored
			if change == browser.WindowMinimized {
				kind = lifecycle.EventMinimized
			}
			core.Loop.Post(lifecycle.Event{Kind: kind})
		}
	}
}

// forwardSignals turns SIGUSR1 into a toggle and SIGHUP into an external
// quit request, which follows the minimize-to-tray policy.
func forwardSignals(ctx context.Context, core *Core) {
	toggle := make(chan os.Signal, 1)
	notifyToggle(toggle)
	defer signal.Stop(toggle)

	quit := make(chan os.Signal, 1)
	notifyExternalQuit(quit)
	defer signal.Stop(quit)

	for {
		select {
		case <-ctx.Done():
			return
		case <-core.Loop.Done():
			return
		case <-toggle:
			core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventToggle})
		case <-quit:
			core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventExternalQuit})
		}
	}
}

// killSwitch ends the process after the watchdog fired. It skips the exit
// decision entirely; only the endpoint and instance record are released.
func killSwitch(paths config.Paths, host *browser.Host, core *Core, log *zap.Logger, total uint64) {
	log.Error("Memory limit exceeded, exiting", zap.Uint64("bytes", total))
	notify(log, fmt.Sprintf("Quit after using %.1f GiB of memory", float64(total)/(1<<30)))
	_ = host.Close()
	core.Close()
	_ = config.RemoveInstanceInfo(paths)
	_ = log.Sync()
	exitFunc(ExitMemoryLimit)
}

// trayActions routes menu clicks into the event loop and the settings store.
type trayActions struct {
	store *config.Store
	core  *Core
	log   *zap.Logger
}

func (a *trayActions) Show() {
	a.core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventShow})
}

func (a *trayActions) Hide() {
	a.core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventHide})
}

func (a *trayActions) Quit() {
	a.core.Loop.Post(lifecycle.Event{Kind: lifecycle.EventForceQuit})
}

func (a *trayActions) SetMinimizeToTray(enabled bool) {
	if err := a.store.SetMinimizeToTray(enabled); err != nil {
		a.log.Warn("Failed to save setting", zap.Error(err))
	}
}

func (a *trayActions) SetStartMinimizedInTray(enabled bool) {
	if err := a.store.SetStartMinimizedInTray(enabled); err != nil {
		a.log.Warn("Failed to save setting", zap.Error(err))
	}
}

func (a *trayActions) SetMemoryLimitGiB(gib int) {
	if err := a.store.SetMemoryLimitGiB(gib); err != nil {
		a.log.Warn("Failed to save setting", zap.Error(err))
	}
	a.core.Loop.Call(a.core.PolicyChanged)
}

package lifecycle

import (
	"sync"

	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/ipc"
	"github.com/whatsit-app/whatsit/internal/metrics"
	"github.com/whatsit-app/whatsit/internal/models"
)

// Settings is the part of the configuration provider the machine reads.
type Settings interface {
	StartMinimizedInTray() bool
	MinimizeToTray() bool
	UseLessMemory() bool
}

// Window is the top-level window owned by the application shell.
type Window interface {
	IsMinimized() bool
	IsVisible() bool
	IsActive() bool
	// Restore clears the minimized flag.
	Restore() error
	Show() error
	// Focus raises the window and gives it input focus.
	Focus() error
	Hide() error
	SaveGeometry() error
}

// ContentHost is the embedded view.
type ContentHost interface {
	Navigate(url string) error
	Suspend() error
	Resume() error
}

// Options configures a Machine.
type Options struct {
	Settings Settings
	Window   Window
	Host     ContentHost
	BaseURL  string // used to resolve native deep links
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	// OnTerminate runs synchronously after the window geometry is saved
	// and before the machine reports StateTerminated.
	OnTerminate func()
}

// Machine is the lifecycle state machine. Transitions are expected to run
// on a single goroutine (see Loop); the mutex only protects readers.
type Machine struct {
	settings    Settings
	window      Window
	host        ContentHost
	baseURL     string
	log         *zap.Logger
	metrics     *metrics.Metrics
	onTerminate func()

	mu      sync.RWMutex
	state   State
	pending string

	// suspended is only touched on the loop goroutine.
	suspended bool
}

// NewMachine creates a machine in the given initial state. Call Init to
// apply that state to the window.
func NewMachine(opts Options, initial State) *Machine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = models.DefaultURL
	}
	return &Machine{
		settings:    opts.Settings,
		window:      opts.Window,
		host:        opts.Host,
		baseURL:     opts.BaseURL,
		log:         opts.Logger.Named("lifecycle"),
		metrics:     opts.Metrics,
		onTerminate: opts.OnTerminate,
		state:       initial,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Terminated reports whether the terminal state was reached.
func (m *Machine) Terminated() bool {
	return m.State() == StateTerminated
}

// PendingURL returns the deep-linked URL awaiting delivery, if any.
func (m *Machine) PendingURL() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending, m.pending != ""
}

// ConsumePendingURL clears the pending URL once the view has loaded url.
// A load that finished for an older URL leaves a newer one pending.
func (m *Machine) ConsumePendingURL(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if url == "" || m.pending != url {
		return false
	}
	m.pending = ""
	return true
}

// Init applies the initial state to the window.
func (m *Machine) Init() {
	switch m.State() {
	case StateHidden:
		m.log.Info("Starting hidden in tray")
		m.hideWindow()
	default:
		m.log.Info("Starting visible")
		m.showWindow()
		m.setState(StateVisible)
	}
}

// ShowAndRaise makes the window visible, un-minimized and focused. It is a
// no-op on a window that is already visible and focused.
func (m *Machine) ShowAndRaise() {
	if m.Terminated() {
		return
	}

	if m.State() == StateVisible && !m.window.IsMinimized() && m.window.IsVisible() && m.window.IsActive() {
		return
	}

	m.showWindow()
	m.setState(StateVisible)
}

func (m *Machine) showWindow() {
	if m.window.IsMinimized() {
		if err := m.window.Restore(); err != nil {
			m.log.Warn("Failed to restore window", zap.Error(err))
		}
	}
	m.resumeContent()
	if err := m.window.Show(); err != nil {
		m.log.Warn("Failed to show window", zap.Error(err))
	}
	if err := m.window.Focus(); err != nil {
		m.log.Warn("Failed to focus window", zap.Error(err))
	}
}

// Hide hides the window, drops any pending URL and applies the
// memory-saving unload policy.
func (m *Machine) Hide() {
	if m.Terminated() {
		return
	}

	m.mu.Lock()
	m.pending = ""
	m.mu.Unlock()

	m.hideWindow()
	m.setState(StateHidden)
}

func (m *Machine) hideWindow() {
	if err := m.window.Hide(); err != nil {
		m.log.Warn("Failed to hide window", zap.Error(err))
	}
	if !m.settings.UseLessMemory() || m.suspended {
		return
	}
	if err := m.host.Suspend(); err != nil {
		m.log.Warn("Failed to suspend content", zap.Error(err))
		return
	}
	m.suspended = true
	m.log.Debug("Content suspended")
}

func (m *Machine) resumeContent() {
	if !m.suspended {
		return
	}
	if err := m.host.Resume(); err != nil {
		m.log.Warn("Failed to resume content", zap.Error(err))
		return
	}
	m.suspended = false
	m.log.Debug("Content resumed")
}

// Toggle hides a focused visible window and raises it otherwise. Used for
// tray activation.
func (m *Machine) Toggle() {
	if m.State() == StateVisible && m.window.IsActive() {
		m.Hide()
		return
	}
	m.ShowAndRaise()
}

// SetMinimized records a window-manager iconify/restore. Restoring a
// hidden window from outside (taskbar, window switcher) counts as showing
// it, so suspended content is resumed.
func (m *Machine) SetMinimized(minimized bool) {
	switch state := m.State(); {
	case minimized && state == StateVisible:
		m.setState(StateMinimizedVisible)
	case !minimized && state == StateMinimizedVisible:
		m.setState(StateVisible)
	case !minimized && state == StateHidden:
		m.log.Info("Hidden window restored externally")
		m.ShowAndRaise()
	}
}

// RequestExit is the single exit decision point for every close and quit
// trigger. It hides or terminates according to DecideExit.
func (m *Machine) RequestExit(trigger Trigger) Decision {
	if m.Terminated() {
		return DecisionTerminate
	}

	d := DecideExit(trigger, m.settings.MinimizeToTray())
	m.log.Info("Exit requested", zap.Stringer("trigger", trigger), zap.Stringer("decision", d))

	switch d {
	case DecisionHide:
		m.Hide()
	case DecisionTerminate:
		m.terminate()
	}
	return d
}

// ForceQuit terminates regardless of the minimize-to-tray setting.
func (m *Machine) ForceQuit() {
	m.RequestExit(TriggerForceQuit)
}

func (m *Machine) terminate() {
	if err := m.window.SaveGeometry(); err != nil {
		m.log.Warn("Failed to save window geometry", zap.Error(err))
	}

	m.mu.Lock()
	m.pending = ""
	m.mu.Unlock()

	if m.onTerminate != nil {
		m.onTerminate()
	}
	m.setState(StateTerminated)
}

// ReceiveCommand applies a command from a secondary launch.
func (m *Machine) ReceiveCommand(cmd ipc.Command) {
	if m.Terminated() {
		return
	}

	switch cmd.Kind {
	case ipc.KindHide:
		m.Hide()

	case ipc.KindOpenURL:
		u, err := ResolveURL(cmd.URL, m.baseURL)
		if err != nil {
			m.log.Warn("Discarding URL", zap.String("url", cmd.URL), zap.Error(err))
			return
		}
		if IsBaseURL(u) {
			m.ShowAndRaise()
			return
		}

		target := u.String()
		m.mu.Lock()
		m.pending = target
		m.mu.Unlock()

		m.ShowAndRaise()

		if err := m.host.Navigate(target); err != nil {
			m.log.Warn("Failed to navigate", zap.String("url", target), zap.Error(err))
		}

	default:
		m.ShowAndRaise()
	}
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev != s {
		m.log.Debug("State changed", zap.Stringer("from", prev), zap.Stringer("to", s))
		m.metrics.Transition(s.String())
	}
}

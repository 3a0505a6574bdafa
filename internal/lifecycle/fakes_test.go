package lifecycle

import (
	"sync"
)

type fakeSettings struct {
	startMinimized bool
	minimizeToTray bool
	useLessMemory  bool
}

func (s *fakeSettings) StartMinimizedInTray() bool { return s.startMinimized }
func (s *fakeSettings) MinimizeToTray() bool       { return s.minimizeToTray }
func (s *fakeSettings) UseLessMemory() bool        { return s.useLessMemory }

type fakeWindow struct {
	mu        sync.Mutex
	visible   bool
	minimized bool
	active    bool
	saves     int
	calls     []string
}

func (w *fakeWindow) record(call string) {
	w.calls = append(w.calls, call)
}

func (w *fakeWindow) IsMinimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}

func (w *fakeWindow) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *fakeWindow) IsActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *fakeWindow) Restore() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("restore")
	w.minimized = false
	return nil
}

func (w *fakeWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("show")
	w.visible = true
	return nil
}

func (w *fakeWindow) Focus() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("focus")
	w.active = true
	return nil
}

func (w *fakeWindow) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("hide")
	w.visible = false
	w.active = false
	return nil
}

func (w *fakeWindow) SaveGeometry() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("save")
	w.saves++
	return nil
}

// restoreExternally puts the window back on screen the way a taskbar click
// would, without going through the machine.
func (w *fakeWindow) restoreExternally() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.minimized = false
	w.visible = true
}

func (w *fakeWindow) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *fakeWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = nil
}

type fakeHost struct {
	mu        sync.Mutex
	navigated []string
	suspends  int
	resumes   int
}

func (h *fakeHost) Navigate(url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navigated = append(h.navigated, url)
	return nil
}

func (h *fakeHost) Suspend() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.suspends++
	return nil
}

func (h *fakeHost) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resumes++
	return nil
}

func (h *fakeHost) Navigated() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.navigated...)
}

type harness struct {
	settings *fakeSettings
	window   *fakeWindow
	host     *fakeHost
	machine  *Machine
}

func newHarness(settings *fakeSettings, initial State) *harness {
	h := &harness{
		settings: settings,
		window:   &fakeWindow{},
		host:     &fakeHost{},
	}
	h.machine = NewMachine(Options{
		Settings: h.settings,
		Window:   h.window,
		Host:     h.host,
		BaseURL:  "https://web.whatsapp.com",
	}, initial)
	h.machine.Init()
	return h
}

package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/ipc"
)

// EventKind identifies an event posted to the Loop.
type EventKind int

const (
	EventCommand EventKind = iota
	EventCloseRequested
	EventQuitShortcut
	EventExternalQuit
	EventForceQuit
	EventShow
	EventHide
	EventToggle
	EventMinimized
	EventRestored
	EventURLConsumed
	EventCall
)

// Event is a unit of work for the Loop.
type Event struct {
	Kind    EventKind
	Command ipc.Command // EventCommand
	URL     string      // EventURLConsumed
	Fn      func()      // EventCall
}

// Loop serializes every state transition onto one goroutine. IPC, tray,
// window and watchdog callbacks post events; they never touch the machine
// directly.
type Loop struct {
	m      *Machine
	events chan Event
	done   chan struct{}
	log    *zap.Logger
}

// NewLoop creates a loop driving m.
func NewLoop(m *Machine, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		m:      m,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		log:    logger.Named("loop"),
	}
}

// Post queues an event. It returns false once the loop has stopped.
func (l *Loop) Post(ev Event) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- ev:
		return true
	case <-l.done:
		return false
	}
}

// PostCommand queues a command received over IPC.
func (l *Loop) PostCommand(cmd ipc.Command) bool {
	return l.Post(Event{Kind: EventCommand, Command: cmd})
}

// Call runs fn on the loop goroutine.
func (l *Loop) Call(fn func()) bool {
	return l.Post(Event{Kind: EventCall, Fn: fn})
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run processes events until the machine terminates or ctx is cancelled.
// Cancelling ctx (process signals) force-quits.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	for !l.m.Terminated() {
		select {
		case <-ctx.Done():
			l.log.Info("Context cancelled, force quitting")
			l.m.RequestExit(TriggerForceQuit)
			return
		case ev := <-l.events:
			l.dispatch(ev)
		}
	}
}

func (l *Loop) dispatch(ev Event) {
	switch ev.Kind {
	case EventCommand:
		l.m.ReceiveCommand(ev.Command)
	case EventCloseRequested:
		l.m.RequestExit(TriggerWindowClose)
	case EventQuitShortcut:
		l.m.RequestExit(TriggerQuitShortcut)
	case EventExternalQuit:
		l.m.RequestExit(TriggerExternal)
	case EventForceQuit:
		l.m.ForceQuit()
	case EventShow:
		l.m.ShowAndRaise()
	case EventHide:
		l.m.Hide()
	case EventToggle:
		l.m.Toggle()
	case EventMinimized:
		l.m.SetMinimized(true)
	case EventRestored:
		l.m.SetMinimized(false)
	case EventURLConsumed:
		l.m.ConsumePendingURL(ev.URL)
	case EventCall:
		if ev.Fn != nil {
			ev.Fn()
		}
	default:
		l.log.Warn("Unknown event", zap.Int("kind", int(ev.Kind)))
	}
}

// Package lifecycle owns the window visibility state and makes the single
// exit-versus-hide decision for every close and quit trigger.
package lifecycle

// State is the lifecycle state of the application window.
type State int

const (
	StateVisible State = iota
	StateHidden
	// StateMinimizedVisible is visible but iconified by the window manager.
	StateMinimizedVisible
	// StateTerminated is reached only through the exit decision.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateVisible:
		return "visible"
	case StateHidden:
		return "hidden"
	case StateMinimizedVisible:
		return "minimized"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Trigger identifies what asked the application to close or quit.
type Trigger int

const (
	TriggerWindowClose Trigger = iota
	TriggerQuitShortcut
	TriggerExternal
	TriggerForceQuit
)

func (t Trigger) String() string {
	switch t {
	case TriggerWindowClose:
		return "window-close"
	case TriggerQuitShortcut:
		return "quit-shortcut"
	case TriggerExternal:
		return "external"
	case TriggerForceQuit:
		return "force-quit"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an exit request.
type Decision int

const (
	DecisionHide Decision = iota
	DecisionTerminate
)

func (d Decision) String() string {
	if d == DecisionTerminate {
		return "terminate"
	}
	return "hide"
}

// DecideExit is the one place that chooses between hiding and terminating.
// Force quit always terminates; every other trigger hides when
// minimize-to-tray is enabled.
func DecideExit(trigger Trigger, minimizeToTray bool) Decision {
	if trigger == TriggerForceQuit {
		return DecisionTerminate
	}
	if minimizeToTray {
		return DecisionHide
	}
	return DecisionTerminate
}

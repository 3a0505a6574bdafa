package lifecycle

import "github.com/whatsit-app/whatsit/internal/ipc"

// LaunchArgs are the parsed launch arguments.
type LaunchArgs struct {
	Show bool
	Hide bool
	URL  string
}

// Command returns the command a secondary launch forwards to the primary.
func (a LaunchArgs) Command() ipc.Command {
	switch {
	case a.Hide:
		return ipc.Hide()
	case a.URL != "":
		return ipc.OpenURL(a.URL)
	default:
		return ipc.Raise()
	}
}

// InitialState picks the state of a primary instance. Explicit arguments
// win over the start-minimized setting.
func InitialState(startMinimized bool, args LaunchArgs) State {
	switch {
	case args.Hide:
		return StateHidden
	case args.Show, args.URL != "":
		return StateVisible
	case startMinimized:
		return StateHidden
	default:
		return StateVisible
	}
}

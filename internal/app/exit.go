package app

import "errors"

// Process exit codes.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitFatal       = 2
	ExitMemoryLimit = 3
)

// ErrFatalEnvironment wraps faults that prevent the application from
// running at all, such as a missing browser or tray icon.
var ErrFatalEnvironment = errors.New("fatal environment error")

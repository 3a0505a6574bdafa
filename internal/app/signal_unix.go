//go:build unix

package app

import (
	"os"
	"os/signal"
	"syscall"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// notifyToggle delivers SIGUSR1, used to bind a global hotkey to
// `pkill -USR1 whatsit`.
func notifyToggle(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGUSR1)
}

func notifyExternalQuit(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGHUP)
}

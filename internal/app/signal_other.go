//go:build !unix

package app

import "os"

var shutdownSignals = []os.Signal{os.Interrupt}

func notifyToggle(chan<- os.Signal) {}

func notifyExternalQuit(chan<- os.Signal) {}

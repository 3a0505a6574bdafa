// Package main is the entry point for whatsit.
package main

import (
	"os"

	"github.com/whatsit-app/whatsit/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}

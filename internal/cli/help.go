package cli

import (
	"fmt"
	"io"

	"github.com/whatsit-app/whatsit/internal/buildinfo"
)

var helpEntries = []struct {
	usage string
	desc  string
}{
	{"show, --show", "Start with the window visible, or raise the running window"},
	{"hide, --hide", "Start hidden in the tray, or hide the running window"},
	{"<url>", "Open an https:// or whatsapp:// link in the running window"},
	{"--no-tray", "Run without a tray icon"},
	{"--version", "Show version information"},
	{"help, --help, -h", "Show this help"},
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n\n", styleBrand.Render(buildinfo.AppName), styleHint.Render("a tray-resident web messenger"))
	fmt.Fprintf(w, "%s %s [show|hide|help] [url] [--no-tray]\n\n", styleLabel.Render("Usage:"), buildinfo.AppName)
	for _, e := range helpEntries {
		fmt.Fprintf(w, "  %-20s %s\n", e.usage, e.desc)
	}
	fmt.Fprintf(w, "\n%s\n", styleHint.Render("Only one instance runs per user; later launches forward to it."))
	fmt.Fprintf(w, "%s WHATSIT_CONFIG_DIR, WHATSIT_CACHE_DIR, WHATSIT_RUNTIME_DIR,\n", styleLabel.Render("Environment:"))
	fmt.Fprintf(w, "  WHATSIT_LOG_LEVEL, WHATSIT_LOG_DEV, WHATSIT_CHROME_BIN\n")
}

func printUsageError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", styleError.Render("Error:"), err)
	fmt.Fprintf(w, "%s\n", styleHint.Render("Run '"+styleCommand.Render(buildinfo.AppName+" --help")+"' for usage."))
}

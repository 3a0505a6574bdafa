package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/whatsit-app/whatsit/internal/buildinfo"
)

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", styleBrand.Render(buildinfo.AppName), styleVersion.Render(buildinfo.Version))
	fmt.Fprintf(w, "  %s %s\n", styleLabel.Render("Commit:"), buildinfo.CommitHash)
	fmt.Fprintf(w, "  %s %s\n", styleLabel.Render("Built:"), buildinfo.BuildDate)
	fmt.Fprintf(w, "  %s %s/%s\n", styleLabel.Render("OS/Arch:"), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  %s %s\n", styleLabel.Render("Go:"), runtime.Version())
}

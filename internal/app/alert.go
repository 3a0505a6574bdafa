package app

import (
	"fmt"
	"io"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/buildinfo"
)

// alertFunc shows a blocking desktop alert. Replaced in tests.
var alertFunc = func(title, message string) error {
	return beeep.Alert(title, message, "")
}

// reportFatal tells the user about an environment fault on stderr and in
// a desktop alert.
func reportFatal(stderr io.Writer, log *zap.Logger, err error) {
	log.Error("Fatal error", zap.Error(err))
	fmt.Fprintf(stderr, "%s: %v\n", buildinfo.AppName, err)
	if alertErr := alertFunc(buildinfo.AppName, err.Error()); alertErr != nil {
		log.Debug("Failed to show alert", zap.Error(alertErr))
	}
}

// notifyFunc shows a non-blocking desktop notification.
var notifyFunc = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

func notify(log *zap.Logger, message string) {
	if err := notifyFunc(buildinfo.AppName, message); err != nil {
		log.Debug("Failed to show notification", zap.Error(err))
	}
}

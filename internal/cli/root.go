// Package cli implements the whatsit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/app"
	"github.com/whatsit-app/whatsit/internal/buildinfo"
	"github.com/whatsit-app/whatsit/internal/config"
	"github.com/whatsit-app/whatsit/internal/logging"
)

// exitError carries a process exit code out of cobra's RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// runApp starts the application. Replaced in tests.
var runApp = app.Run

// rootCommand is the cobra root plus the usage error its help func found.
type rootCommand struct {
	*cobra.Command
	flags   Flags
	helpErr error
}

func newRootCmd(stdout, stderr io.Writer) *rootCommand {
	r := &rootCommand{}
	r.Command = &cobra.Command{
		Use:           buildinfo.AppName + " [show|hide|help] [url]",
		Short:         "Tray-resident web messenger",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := ParseArgs(r.flags, args)
			if err != nil {
				return usageError(stderr, err)
			}
			return run(cmd.Context(), parsed, stdout, stderr)
		},
	}

	f := r.Flags()
	f.BoolVar(&r.flags.Show, "show", false, "Start with the window visible, or raise the running window")
	f.BoolVar(&r.flags.Hide, "hide", false, "Start hidden in the tray, or hide the running window")
	f.BoolVarP(&r.flags.Help, "help", "h", false, "Show this help")
	f.BoolVarP(&r.flags.Version, "version", "v", false, "Show version information")
	f.BoolVar(&r.flags.NoTray, "no-tray", false, "Run without a tray icon")

	r.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(stderr, err)
	})
	// cobra answers --help before RunE. The conflict check still applies,
	// so "show --help" is a usage error rather than help.
	r.SetHelpFunc(func(c *cobra.Command, _ []string) {
		if _, err := ParseArgs(r.flags, c.Flags().Args()); err != nil {
			r.helpErr = usageError(stderr, err)
			return
		}
		printHelp(stdout)
	})

	r.SetOut(stdout)
	r.SetErr(stderr)
	return r
}

func usageError(stderr io.Writer, err error) error {
	printUsageError(stderr, err)
	return &exitError{code: app.ExitUsage, err: err}
}

// Execute runs the CLI with the given arguments and returns the process
// exit code.
func Execute(args []string) int {
	return execute(context.Background(), args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		err = cmd.helpErr
	}
	if err == nil {
		return app.ExitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintf(stderr, "%s %v\n", styleError.Render("Error:"), err)
	return app.ExitFatal
}

func run(ctx context.Context, args Args, stdout, stderr io.Writer) error {
	if args.Help {
		printHelp(stdout)
		return nil
	}
	if args.Version {
		printVersion(stdout)
		return nil
	}

	env, err := config.LoadEnv()
	if err != nil {
		return usageError(stderr, err)
	}
	paths, err := config.ResolvePaths(env)
	if err != nil {
		return fatal(stderr, err)
	}
	if err := paths.Ensure(); err != nil {
		return fatal(stderr, err)
	}

	logger := newLogger(env, paths)
	defer func() { _ = logger.Sync() }()

	logger.Debug("Starting", zap.String("version", buildinfo.String()),
		zap.Bool("show", args.Launch.Show),
		zap.Bool("hide", args.Launch.Hide),
		zap.String("url", args.Launch.URL))

	code := runApp(ctx, app.Options{
		Args:   args.Launch,
		NoTray: args.NoTray,
		Paths:  paths,
		Env:    env,
		Logger: logger,
		Stderr: stderr,
	})
	if code != app.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func fatal(stderr io.Writer, err error) error {
	fmt.Fprintf(stderr, "%s %v\n", styleError.Render("Error:"), err)
	return &exitError{code: app.ExitFatal, err: err}
}

// newLogger builds the logger from env overrides and the debug settings.
// The settings file is read directly because the store needs a logger.
func newLogger(env config.Env, paths config.Paths) *zap.Logger {
	cfg := logging.DefaultConfig()
	cfg.Development = env.LogDev

	settings, _, err := config.LoadSettings(paths.SettingsFile())
	if err == nil {
		if settings.Debug.LogLevel != "" {
			cfg.Level = settings.Debug.LogLevel
		}
		if settings.Debug.EnableFileLogging {
			cfg.File = paths.LogFile()
		}
	}
	if env.LogLevel != "" {
		cfg.Level = env.LogLevel
	}
	return logging.NewOrNop(cfg)
}

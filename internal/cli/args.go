package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/whatsit-app/whatsit/internal/lifecycle"
)

// ErrConflictingArgs is returned when more than one of show, hide and help
// is given.
var ErrConflictingArgs = errors.New("show, hide and help are mutually exclusive")

// Args is the parsed command line.
type Args struct {
	Launch  lifecycle.LaunchArgs
	Help    bool
	Version bool
	NoTray  bool
}

type mode int

const (
	modeNone mode = iota
	modeShow
	modeHide
	modeHelp
)

func (m mode) String() string {
	switch m {
	case modeShow:
		return "show"
	case modeHide:
		return "hide"
	case modeHelp:
		return "help"
	default:
		return ""
	}
}

func parseMode(arg string) mode {
	switch arg {
	case "show":
		return modeShow
	case "hide":
		return modeHide
	case "help":
		return modeHelp
	default:
		return modeNone
	}
}

// Flags are the options parsed by the root command.
type Flags struct {
	Show    bool
	Hide    bool
	Help    bool
	Version bool
	NoTray  bool
}

func (f Flags) modes() []mode {
	var modes []mode
	if f.Show {
		modes = append(modes, modeShow)
	}
	if f.Hide {
		modes = append(modes, modeHide)
	}
	if f.Help {
		modes = append(modes, modeHelp)
	}
	return modes
}

// ParseArgs combines the parsed flags with the positional keywords and the
// URL argument. Repeating the same keyword is allowed; combining different
// ones is ErrConflictingArgs.
func ParseArgs(flags Flags, args []string) (Args, error) {
	parsed := Args{Version: flags.Version, NoTray: flags.NoTray}
	var m mode

	setMode := func(am mode) error {
		if m != modeNone && m != am {
			return fmt.Errorf("%w: got %s and %s", ErrConflictingArgs, m, am)
		}
		m = am
		return nil
	}
	for _, am := range flags.modes() {
		if err := setMode(am); err != nil {
			return Args{}, err
		}
	}

	for _, arg := range args {
		if am := parseMode(arg); am != modeNone {
			if err := setMode(am); err != nil {
				return Args{}, err
			}
			continue
		}

		switch {
		case arg == "version":
			parsed.Version = true
		case lifecycle.IsLaunchURL(arg):
			if parsed.Launch.URL != "" {
				return Args{}, fmt.Errorf("only one URL may be given, got %q and %q", parsed.Launch.URL, arg)
			}
			parsed.Launch.URL = arg
		case strings.HasPrefix(arg, "-"):
			return Args{}, fmt.Errorf("unknown flag %q", arg)
		default:
			return Args{}, fmt.Errorf("unknown argument %q", arg)
		}
	}

	parsed.Help = m == modeHelp
	parsed.Launch.Show = m == modeShow
	parsed.Launch.Hide = m == modeHide
	return parsed, nil
}

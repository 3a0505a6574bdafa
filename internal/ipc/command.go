// Package ipc implements single-instance coordination: a launching process
// probes a well-known local endpoint and hands its command to the primary
// instance, or becomes the primary by binding the endpoint itself.
package ipc

import "strings"

// Delimiter separates the kind keyword from the URL on the wire.
const Delimiter = "|"

// Wire keywords.
const (
	keywordRaise = "raise"
	keywordHide  = "hide"
)

// MaxMessageSize caps a single message. A longer message is not trusted
// and is handled as a plain raise.
const MaxMessageSize = 8 << 10

// Kind identifies a command.
type Kind int

const (
	KindRaise Kind = iota
	KindHide
	KindOpenURL
)

func (k Kind) String() string {
	switch k {
	case KindRaise:
		return "raise"
	case KindHide:
		return "hide"
	case KindOpenURL:
		return "open_url"
	default:
		return "unknown"
	}
}

// Command is a message sent from a secondary launch to the primary instance.
type Command struct {
	Kind Kind
	URL  string // set only for KindOpenURL
}

// Raise returns a command that brings the window to the front.
func Raise() Command { return Command{Kind: KindRaise} }

// Hide returns a command that hides the window to the tray.
func Hide() Command { return Command{Kind: KindHide} }

// OpenURL returns a command that raises the window and navigates to url.
func OpenURL(url string) Command { return Command{Kind: KindOpenURL, URL: url} }

// Encode serializes c to its wire form: "raise", "hide" or "raise|<url>".
func (c Command) Encode() []byte {
	switch c.Kind {
	case KindHide:
		return []byte(keywordHide)
	case KindOpenURL:
		if c.URL == "" {
			return []byte(keywordRaise)
		}
		return []byte(keywordRaise + Delimiter + c.URL)
	default:
		return []byte(keywordRaise)
	}
}

func (c Command) String() string {
	if c.Kind == KindOpenURL {
		return c.Kind.String() + "(" + c.URL + ")"
	}
	return c.Kind.String()
}

// Decode parses a wire message. It never fails: unknown keywords, empty or
// truncated input all decode to Raise, and a URL is only taken from a
// raise message carrying a non-empty second field.
func Decode(data []byte) Command {
	msg := strings.TrimRight(string(data), "\r\n")

	keyword, rest, found := strings.Cut(msg, Delimiter)
	keyword = strings.TrimSpace(keyword)

	if keyword == keywordHide {
		return Hide()
	}
	if keyword != keywordRaise || !found {
		return Raise()
	}

	url := strings.TrimSpace(rest)
	if url == "" {
		return Raise()
	}
	return OpenURL(url)
}

package lifecycle

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for URLs the content host must not open.
var ErrInvalidURL = errors.New("invalid url")

// deepLinkScheme is the native scheme registered for chat links.
const deepLinkScheme = "whatsapp"

// IsLaunchURL reports whether a launch argument should be treated as a URL
// to forward rather than as a keyword.
func IsLaunchURL(arg string) bool {
	lower := strings.ToLower(arg)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, deepLinkScheme+":")
}

// ResolveURL validates raw and maps native deep links onto base.
// whatsapp://send?phone=1 becomes <base>/send?phone=1.
func ResolveURL(raw, base string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
		}
		return u, nil

	case deepLinkScheme:
		b, err := url.Parse(base)
		if err != nil || b.Host == "" {
			return nil, fmt.Errorf("%w: bad base url %q", ErrInvalidURL, base)
		}
		// whatsapp://send?x parses with Host "send"; whatsapp:send?x with Opaque "send".
		action := u.Host + u.Path
		if action == "" {
			action = u.Opaque
		}
		resolved := *b
		resolved.Path = "/" + strings.Trim(action, "/")
		if resolved.Path == "/" {
			resolved.Path = ""
		}
		resolved.RawQuery = u.RawQuery
		resolved.Fragment = u.Fragment
		return &resolved, nil

	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
}

// IsBaseURL reports whether u points at a site root with nothing to
// navigate to. Such URLs only activate the window.
func IsBaseURL(u *url.URL) bool {
	return (u.Path == "" || u.Path == "/") && u.RawQuery == "" && u.Fragment == ""
}

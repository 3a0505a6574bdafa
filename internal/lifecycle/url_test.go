package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://web.whatsapp.com"

func TestIsLaunchURL(t *testing.T) {
	assert.True(t, IsLaunchURL("https://web.whatsapp.com/send?phone=1"))
	assert.True(t, IsLaunchURL("HTTP://example.com"))
	assert.True(t, IsLaunchURL("whatsapp://send?phone=1"))
	assert.False(t, IsLaunchURL("hide"))
	assert.False(t, IsLaunchURL("--show"))
	assert.False(t, IsLaunchURL("ftp://example.com"))
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://web.whatsapp.com/send?phone=123", "https://web.whatsapp.com/send?phone=123"},
		{"  http://example.com/a  ", "http://example.com/a"},
		{"whatsapp://send?phone=123&text=hi", "https://web.whatsapp.com/send?phone=123&text=hi"},
		{"whatsapp:send?phone=123", "https://web.whatsapp.com/send?phone=123"},
		{"whatsapp://", "https://web.whatsapp.com"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := ResolveURL(tt.raw, testBase)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestResolveURLRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "ftp://example.com", "javascript:alert(1)", "https://", "http://%zz"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ResolveURL(raw, testBase)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestIsBaseURL(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://web.whatsapp.com", true},
		{"https://web.whatsapp.com/", true},
		{"https://web.whatsapp.com/send", false},
		{"https://web.whatsapp.com/?a=1", false},
		{"https://web.whatsapp.com/#chat", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := ResolveURL(tt.raw, testBase)
			require.NoError(t, err)
			assert.Equal(t, tt.want, IsBaseURL(u))
		})
	}
}

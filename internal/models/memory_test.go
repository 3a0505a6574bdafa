package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryPolicy(t *testing.T) {
	assert.False(t, MemoryPolicy{}.Enabled())
	assert.Zero(t, MemoryPolicy{ThresholdGiB: -1}.ThresholdBytes())
	assert.True(t, MemoryPolicy{ThresholdGiB: 2}.Enabled())
	assert.Equal(t, uint64(2)<<30, MemoryPolicy{ThresholdGiB: 2}.ThresholdBytes())
}

func TestNewSettingsDefaults(t *testing.T) {
	s := NewSettings()

	assert.True(t, s.Window.MinimizeToTray)
	assert.False(t, s.System.StartMinimizedInTray)
	assert.Zero(t, s.Advanced.MemoryLimitGiB)
	assert.Equal(t, DefaultURL, s.Custom.URL)
	assert.Equal(t, "info", s.Debug.LogLevel)
}

func TestRoundZoom(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, DefaultZoomLevel},
		{1.0, 1.0},
		{1.25, 1.3},
		{1.04, 1.0},
		{0.1, MinZoomLevel},
		{12, MaxZoomLevel},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RoundZoom(tt.in), 1e-9, "in=%v", tt.in)
	}
}

func TestNormalizeZoomAndDownloads(t *testing.T) {
	s := NewSettings()
	assert.False(t, s.General.PreferDarkMode)
	assert.Empty(t, s.Downloads.Path)

	s.Window.ZoomLevel = 1.77
	s.Normalize()
	assert.InDelta(t, 1.8, s.Window.ZoomLevel, 1e-9)
}

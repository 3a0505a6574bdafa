package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.CommandReceived("raise")
	m.ConnectionDropped("read")
	m.Transition("visible")
	m.MemorySampled(1, true)
	m.WatchdogArmed(true)
}

func TestRecording(t *testing.T) {
	m := New()

	m.CommandReceived("raise")
	m.CommandReceived("raise")
	m.CommandReceived("open_url")
	m.MemorySampled(3<<30, false)
	m.MemorySampled(0, true)
	m.WatchdogArmed(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IPCCommands.WithLabelValues("raise")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IPCCommands.WithLabelValues("open_url")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WatchdogPolls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SampleFailures))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MemoryBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchdogEnabled))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Transition("hidden")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `whatsit_lifecycle_transitions_total{state="hidden"} 1`))
}

func TestCheckLoopback(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"127.0.0.1:9090", false},
		{"localhost:9090", false},
		{"[::1]:9090", false},
		{"0.0.0.0:9090", true},
		{"192.168.1.10:9090", true},
		{"no-port", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := checkLoopback(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

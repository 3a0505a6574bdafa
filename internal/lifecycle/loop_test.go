package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whatsit-app/whatsit/internal/ipc"
)

func waitDone(t *testing.T, l *Loop) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

// syncLoop runs an empty call through the loop so earlier events are applied.
func syncLoop(t *testing.T, l *Loop) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, l.Call(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not process call")
	}
}

func TestLoopDispatchesEvents(t *testing.T) {
	h := newHarness(&fakeSettings{minimizeToTray: true}, StateVisible)
	l := NewLoop(h.machine, nil)
	go l.Run(context.Background())

	l.Post(Event{Kind: EventCloseRequested})
	syncLoop(t, l)
	assert.Equal(t, StateHidden, h.machine.State())

	l.PostCommand(ipc.OpenURL("https://web.whatsapp.com/send"))
	syncLoop(t, l)
	assert.Equal(t, StateVisible, h.machine.State())
	_, ok := h.machine.PendingURL()
	assert.True(t, ok)

	l.Post(Event{Kind: EventURLConsumed, URL: "https://web.whatsapp.com/other"})
	syncLoop(t, l)
	_, ok = h.machine.PendingURL()
	assert.True(t, ok)

	l.Post(Event{Kind: EventURLConsumed, URL: "https://web.whatsapp.com/send"})
	syncLoop(t, l)
	_, ok = h.machine.PendingURL()
	assert.False(t, ok)

	l.Post(Event{Kind: EventMinimized})
	syncLoop(t, l)
	assert.Equal(t, StateMinimizedVisible, h.machine.State())

	l.Post(Event{Kind: EventRestored})
	syncLoop(t, l)
	assert.Equal(t, StateVisible, h.machine.State())

	l.Post(Event{Kind: EventExternalQuit})
	syncLoop(t, l)
	assert.Equal(t, StateHidden, h.machine.State())

	l.Post(Event{Kind: EventRestored})
	syncLoop(t, l)
	assert.Equal(t, StateVisible, h.machine.State())

	l.Post(Event{Kind: EventMinimized})
	syncLoop(t, l)

	l.Post(Event{Kind: EventQuitShortcut})
	syncLoop(t, l)
	assert.Equal(t, StateHidden, h.machine.State())

	l.Post(Event{Kind: EventForceQuit})
	waitDone(t, l)
	assert.True(t, h.machine.Terminated())
	assert.False(t, l.Post(Event{Kind: EventShow}))
}

func TestLoopStopsOnTerminate(t *testing.T) {
	h := newHarness(&fakeSettings{}, StateVisible)
	l := NewLoop(h.machine, nil)
	go l.Run(context.Background())

	l.Post(Event{Kind: EventCloseRequested})
	waitDone(t, l)

	assert.True(t, h.machine.Terminated())
}

func TestLoopContextCancelForceQuits(t *testing.T) {
	h := newHarness(&fakeSettings{minimizeToTray: true}, StateVisible)
	l := NewLoop(h.machine, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	cancel()
	waitDone(t, l)

	assert.True(t, h.machine.Terminated())
	assert.Equal(t, 1, h.window.saves)
}

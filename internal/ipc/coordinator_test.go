package ipc

import (
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortDir keeps socket paths under the unix path length limit.
func shortDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "wi")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func newTestCoordinator(t *testing.T, dir string) *Coordinator {
	t.Helper()
	return New(Config{Name: "whatsit-test", Dir: dir})
}

// collector gathers commands delivered by a listener.
type collector struct {
	mu   sync.Mutex
	cmds []Command
	ch   chan Command
}

func newCollector() *collector {
	return &collector{ch: make(chan Command, 64)}
}

func (c *collector) add(cmd Command) {
	c.mu.Lock()
	c.cmds = append(c.cmds, cmd)
	c.mu.Unlock()
	c.ch <- cmd
}

func (c *collector) next(t *testing.T) Command {
	t.Helper()
	select {
	case cmd := <-c.ch:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
		return Command{}
	}
}

func TestTryNotifyExistingWithoutListener(t *testing.T) {
	c := newTestCoordinator(t, shortDir(t))

	start := time.Now()
	ok := c.TryNotifyExisting(Raise())
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Less(t, elapsed, DefaultConnectTimeout+DefaultWriteTimeout)
}

func TestTryNotifyExistingWithStaleEndpoint(t *testing.T) {
	dir := shortDir(t)
	c := newTestCoordinator(t, dir)
	leaveStaleEndpoint(t, c.Path())

	start := time.Now()
	ok := c.TryNotifyExisting(OpenURL("https://web.whatsapp.com/send?phone=1"))
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Less(t, elapsed, DefaultConnectTimeout+DefaultWriteTimeout)
}

func TestNotifyDeliversCommand(t *testing.T) {
	dir := shortDir(t)
	primary := newTestCoordinator(t, dir)
	got := newCollector()

	l, err := primary.StartListening(got.add)
	require.NoError(t, err)
	defer l.Close()

	secondary := newTestCoordinator(t, dir)
	require.True(t, secondary.TryNotifyExisting(OpenURL("https://web.whatsapp.com/send/?text=hi")))

	assert.Equal(t, OpenURL("https://web.whatsapp.com/send/?text=hi"), got.next(t))
}

func TestListenerHandlesManySequentialConnections(t *testing.T) {
	dir := shortDir(t)
	primary := newTestCoordinator(t, dir)
	got := newCollector()

	l, err := primary.StartListening(got.add)
	require.NoError(t, err)
	defer l.Close()

	const launches = 50
	for i := 0; i < launches; i++ {
		require.True(t, newTestCoordinator(t, dir).TryNotifyExisting(Raise()), "launch %d", i)
		assert.Equal(t, Raise(), got.next(t))
	}
}

func TestListenerSurvivesBadConnections(t *testing.T) {
	dir := shortDir(t)
	primary := newTestCoordinator(t, dir)
	got := newCollector()

	l, err := primary.StartListening(got.add)
	require.NoError(t, err)
	defer l.Close()

	// Connect and close without writing.
	conn, err := net.Dial("unix", l.Path())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// Malformed message.
	conn, err = net.Dial("unix", l.Path())
	require.NoError(t, err)
	_, err = conn.Write([]byte("garbage-without-delimiter"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	assert.Equal(t, Raise(), got.next(t))

	// Partial write that never closes: delivered after the read deadline.
	conn, err = net.Dial("unix", l.Path())
	require.NoError(t, err)
	_, err = conn.Write([]byte("hid"))
	require.NoError(t, err)
	assert.Equal(t, Raise(), got.next(t))
	_ = conn.Close()

	// Listener still serves well-formed commands.
	require.True(t, newTestCoordinator(t, dir).TryNotifyExisting(Hide()))
	assert.Equal(t, Hide(), got.next(t))
}

func TestOversizedMessageIsPlainRaise(t *testing.T) {
	dir := shortDir(t)
	primary := newTestCoordinator(t, dir)
	got := newCollector()

	l, err := primary.StartListening(got.add)
	require.NoError(t, err)
	defer l.Close()

	msg := OpenURL("https://web.whatsapp.com/send?text=" + strings.Repeat("a", MaxMessageSize)).Encode()
	require.Greater(t, len(msg), MaxMessageSize)

	conn, err := net.Dial("unix", l.Path())
	require.NoError(t, err)
	_, err = conn.Write(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	assert.Equal(t, Raise(), got.next(t))

	// A message exactly at the cap is still decoded.
	exact := []byte("raise|https://web.whatsapp.com/send?text=")
	exact = append(exact, []byte(strings.Repeat("b", MaxMessageSize-len(exact)))...)
	conn, err = net.Dial("unix", l.Path())
	require.NoError(t, err)
	_, err = conn.Write(exact)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	cmd := got.next(t)
	assert.Equal(t, KindOpenURL, cmd.Kind)
	assert.Equal(t, string(exact[len("raise|"):]), cmd.URL)
}

func TestListenReclaimsStaleEndpoint(t *testing.T) {
	dir := shortDir(t)
	first := newTestCoordinator(t, dir)

	// First launch crashes while holding the endpoint.
	leaveStaleEndpoint(t, first.Path())
	_, err := os.Lstat(first.Path())
	require.NoError(t, err)

	second := newTestCoordinator(t, dir)
	l, err := second.Listen()
	require.NoError(t, err)
	defer l.Close()

	assert.True(t, l.Reclaimed)
}

func TestListenRefusesLiveEndpoint(t *testing.T) {
	dir := shortDir(t)
	primary := newTestCoordinator(t, dir)
	got := newCollector()

	l, err := primary.StartListening(got.add)
	require.NoError(t, err)
	defer l.Close()

	_, err = newTestCoordinator(t, dir).Listen()
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// The liveness probe must not be delivered as a command.
	select {
	case cmd := <-got.ch:
		t.Fatalf("unexpected command %v", cmd)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseRemovesEndpoint(t *testing.T) {
	dir := shortDir(t)
	c := newTestCoordinator(t, dir)

	l, err := c.StartListening(func(Command) {})
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err = os.Lstat(c.Path())
	assert.True(t, os.IsNotExist(err))
	assert.False(t, c.TryNotifyExisting(Raise()))
}

func TestServeReturnsErrClosed(t *testing.T) {
	c := newTestCoordinator(t, shortDir(t))
	l, err := c.Listen()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- l.Serve(func(Command) {}) }()

	require.NoError(t, l.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

// leaveStaleEndpoint binds path and closes the listener without unlinking,
// which is what a crashed primary leaves behind.
func leaveStaleEndpoint(t *testing.T, path string) {
	t.Helper()
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, ln.Close())
}

package ipc

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/metrics"
)

// Listener is the primary instance's side of the endpoint.
type Listener struct {
	ln          net.Listener
	path        string
	readTimeout time.Duration
	log         *zap.Logger
	metrics     *metrics.Metrics

	wg        sync.WaitGroup
	closed    chan struct{}
	closeOnce sync.Once

	// Reclaimed reports that a stale endpoint was removed before binding.
	Reclaimed bool
}

// Path returns the bound endpoint path.
func (l *Listener) Path() string {
	return l.path
}

// Serve accepts connections until Close. Each connection carries one
// message; onCommand is invoked once per non-empty message. A failing
// connection is logged and dropped without affecting later ones.
func (l *Listener) Serve(onCommand func(Command)) error {
	backoff := 5 * time.Millisecond
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.closed:
				return ErrClosed
			default:
			}
			l.log.Warn("Accept failed", zap.Error(err))
			l.metrics.ConnectionDropped("accept")
			time.Sleep(backoff)
			if backoff < time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 5 * time.Millisecond

		l.wg.Add(1)
		go l.handle(conn, onCommand)
	}
}

func (l *Listener) handle(conn net.Conn, onCommand func(Command)) {
	defer l.wg.Done()
	defer conn.Close()

	data, err := readMessage(conn, l.readTimeout)
	if err != nil {
		l.log.Debug("Dropping connection", zap.Error(err))
		l.metrics.ConnectionDropped("read")
		return
	}
	if len(data) == 0 {
		// Liveness probes connect and close without writing.
		return
	}

	var cmd Command
	if len(data) > MaxMessageSize {
		l.log.Warn("Oversized message, treating as raise", zap.Int("limit", MaxMessageSize))
		l.metrics.ConnectionDropped("oversize")
		cmd = Raise()
	} else {
		cmd = Decode(data)
	}
	l.log.Debug("Command received", zap.Stringer("command", cmd))
	l.metrics.CommandReceived(cmd.Kind.String())
	onCommand(cmd)
}

// readMessage reads until EOF, the deadline or one byte past the size cap,
// so callers can tell an oversized message apart. Bytes that arrived
// before a deadline are still returned as the message.
func readMessage(conn net.Conn, timeout time.Duration) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	_, err := io.Copy(&buf, io.LimitReader(conn, MaxMessageSize+1))
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() && buf.Len() > 0 {
			return buf.Bytes(), nil
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close stops accepting, removes the endpoint and waits for in-flight
// connections to finish.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.ln.Close()
		l.wg.Wait()
	})
	return err
}

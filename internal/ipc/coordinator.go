package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/metrics"
)

// Default timeouts.
const (
	DefaultConnectTimeout = 100 * time.Millisecond
	DefaultWriteTimeout   = 100 * time.Millisecond
	DefaultReadTimeout    = time.Second
)

var (
	// ErrAlreadyRunning is returned by Listen when a live primary holds the endpoint.
	ErrAlreadyRunning = errors.New("ipc: another instance is already listening")

	// ErrClosed is returned by Serve after Close.
	ErrClosed = errors.New("ipc: listener closed")
)

// Config configures a Coordinator.
type Config struct {
	// Name is the application-scoped endpoint name, e.g. "whatsit-ipc".
	Name string

	// Dir is the per-user directory holding the endpoint. It is created
	// with 0700 permissions so other users cannot reach the socket.
	Dir string

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (c *Config) defaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Coordinator resolves the endpoint and implements both sides of the
// single-instance handshake.
type Coordinator struct {
	cfg Config
	log *zap.Logger
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	cfg.defaults()
	return &Coordinator{
		cfg: cfg,
		log: cfg.Logger.Named("ipc"),
	}
}

// Path returns the filesystem path of the endpoint.
func (c *Coordinator) Path() string {
	return filepath.Join(c.cfg.Dir, c.cfg.Name+".sock")
}

// TryNotifyExisting connects to the endpoint and hands cmd to the primary
// instance. It returns true when a primary was reached (the caller must not
// continue starting) and false when no primary exists. It never blocks for
// longer than ConnectTimeout + WriteTimeout.
func (c *Coordinator) TryNotifyExisting(cmd Command) bool {
	c.log.Debug("Checking for existing instance", zap.String("endpoint", c.Path()))

	conn, err := net.DialTimeout("unix", c.Path(), c.cfg.ConnectTimeout)
	if err != nil {
		c.log.Debug("No existing instance", zap.Error(err))
		return false
	}
	defer conn.Close()

	c.log.Info("Existing instance found", zap.Stringer("command", cmd))

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.log.Warn("Failed to set write deadline", zap.Error(err))
	}
	if _, err := conn.Write(cmd.Encode()); err != nil {
		// The primary exists even if it did not take the message.
		c.log.Warn("Failed to send command to existing instance", zap.Error(err))
	}
	return true
}

// Listen claims the endpoint. A leftover endpoint from an unclean shutdown
// is removed first; a live one yields ErrAlreadyRunning.
func (c *Coordinator) Listen() (*Listener, error) {
	if err := os.MkdirAll(c.cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create endpoint dir %s: %w", c.cfg.Dir, err)
	}

	path := c.Path()
	reclaimed, err := c.removeStale(path)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to bind endpoint %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		c.log.Warn("Failed to restrict endpoint permissions", zap.Error(err))
	}

	c.log.Info("Listening for instance commands", zap.String("endpoint", path))

	return &Listener{
		ln:          ln,
		path:        path,
		readTimeout: c.cfg.ReadTimeout,
		log:         c.log,
		metrics:     c.cfg.Metrics,
		closed:      make(chan struct{}),
		Reclaimed:   reclaimed,
	}, nil
}

// StartListening claims the endpoint and serves it in the background,
// invoking onCommand for every decoded message.
func (c *Coordinator) StartListening(onCommand func(Command)) (*Listener, error) {
	l, err := c.Listen()
	if err != nil {
		return nil, err
	}
	go func() {
		if err := l.Serve(onCommand); err != nil && !errors.Is(err, ErrClosed) {
			c.log.Error("Listener stopped", zap.Error(err))
		}
	}()
	return l, nil
}

// removeStale removes an endpoint nobody is listening on.
func (c *Coordinator) removeStale(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat endpoint %s: %w", path, err)
	}

	conn, err := net.DialTimeout("unix", path, c.cfg.ConnectTimeout)
	if err == nil {
		_ = conn.Close()
		return false, ErrAlreadyRunning
	}

	c.log.Info("Removing stale endpoint", zap.String("endpoint", path), zap.NamedError("probe", err))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove stale endpoint %s: %w", path, err)
	}
	return true, nil
}

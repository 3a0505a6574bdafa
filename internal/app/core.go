// Package app wires the single-instance coordinator, the lifecycle state
// machine and the memory watchdog into a running application.
package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/ipc"
	"github.com/whatsit-app/whatsit/internal/lifecycle"
	"github.com/whatsit-app/whatsit/internal/metrics"
	"github.com/whatsit-app/whatsit/internal/models"
	"github.com/whatsit-app/whatsit/internal/watchdog"
)

// Settings is the configuration the core reads.
type Settings interface {
	lifecycle.Settings
	MemoryPolicy() models.MemoryPolicy
}

// CoreOptions configures a Core.
type CoreOptions struct {
	Settings    Settings
	Window      lifecycle.Window
	Host        lifecycle.ContentHost
	BaseURL     string
	Coordinator *ipc.Coordinator
	Sampler     watchdog.Sampler

	// Terminate is the memory kill switch. It is called at most once.
	Terminate func(total uint64)
	// OnTerminate runs during an orderly exit, before Run returns.
	OnTerminate func()

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Core is the primary instance: it owns the endpoint and serializes every
// command, UI event and watchdog change through one event loop.
type Core struct {
	Machine  *lifecycle.Machine
	Loop     *lifecycle.Loop
	Watchdog *watchdog.Watchdog

	settings Settings
	listener *ipc.Listener
	args     lifecycle.LaunchArgs
	log      *zap.Logger

	closeOnce sync.Once
}

// NewCore claims the endpoint and builds the state machine in the state
// derived from settings and launch arguments. It returns
// ipc.ErrAlreadyRunning when another primary holds the endpoint.
func NewCore(opts CoreOptions, args lifecycle.LaunchArgs) (*Core, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Coordinator == nil {
		return nil, errors.New("coordinator is required")
	}

	listener, err := opts.Coordinator.Listen()
	if err != nil {
		return nil, err
	}

	initial := lifecycle.InitialState(opts.Settings.StartMinimizedInTray(), args)
	machine := lifecycle.NewMachine(lifecycle.Options{
		Settings:    opts.Settings,
		Window:      opts.Window,
		Host:        opts.Host,
		BaseURL:     opts.BaseURL,
		Logger:      opts.Logger,
		Metrics:     opts.Metrics,
		OnTerminate: opts.OnTerminate,
	}, initial)

	wd := watchdog.New(watchdog.Options{
		Sampler:   opts.Sampler,
		Terminate: opts.Terminate,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	}, opts.Settings.MemoryPolicy())

	return &Core{
		Machine:  machine,
		Loop:     lifecycle.NewLoop(machine, opts.Logger),
		Watchdog: wd,
		settings: opts.Settings,
		listener: listener,
		args:     args,
		log:      opts.Logger,
	}, nil
}

// InitialState returns the state the window starts in.
func (c *Core) InitialState() lifecycle.State {
	return lifecycle.InitialState(c.settings.StartMinimizedInTray(), c.args)
}

// Endpoint returns the bound endpoint path.
func (c *Core) Endpoint() string {
	return c.listener.Path()
}

// ReclaimedStale reports whether a stale endpoint was removed on startup.
func (c *Core) ReclaimedStale() bool {
	return c.listener.Reclaimed
}

// Run initializes the window, starts serving the endpoint and the watchdog,
// and runs the event loop until the machine terminates or ctx is done.
func (c *Core) Run(ctx context.Context) {
	defer c.Close()

	c.Loop.Call(c.Machine.Init)
	if c.args.URL != "" {
		if c.args.Hide {
			c.log.Info("Ignoring URL on hidden launch", zap.String("url", c.args.URL))
		} else {
			c.Loop.PostCommand(ipc.OpenURL(c.args.URL))
		}
	}

	go func() {
		err := c.listener.Serve(func(cmd ipc.Command) {
			c.Loop.PostCommand(cmd)
		})
		if err != nil && !errors.Is(err, ipc.ErrClosed) {
			c.log.Error("Listener stopped", zap.Error(err))
		}
	}()

	wdCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.Watchdog.Run(wdCtx)

	c.Loop.Run(ctx)
}

// PolicyChanged re-reads the memory policy and re-arms the watchdog.
func (c *Core) PolicyChanged() {
	c.Watchdog.SetPolicy(c.settings.MemoryPolicy())
}

// Close releases the endpoint. It is safe to call more than once.
func (c *Core) Close() {
	c.closeOnce.Do(func() {
		if err := c.listener.Close(); err != nil {
			c.log.Warn("Failed to close listener", zap.Error(err))
		}
	})
}

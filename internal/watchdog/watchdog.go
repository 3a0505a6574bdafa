// Package watchdog terminates the application when the resident memory of
// its process group grows past a configured threshold.
package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/whatsit-app/whatsit/internal/metrics"
	"github.com/whatsit-app/whatsit/internal/models"
)

// Policy is the watchdog configuration.
type Policy = models.MemoryPolicy

// Sampler measures the total resident memory, in bytes, of the processes
// the watchdog is responsible for.
type Sampler interface {
	Sample(ctx context.Context) (uint64, error)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(ctx context.Context) (uint64, error)

// Sample calls f.
func (f SamplerFunc) Sample(ctx context.Context) (uint64, error) { return f(ctx) }

// Options configures a Watchdog.
type Options struct {
	Sampler Sampler
	// Terminate is called at most once, with the sample that exceeded the
	// threshold. It is expected not to return control to normal operation.
	Terminate func(total uint64)
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Watchdog polls a Sampler while its policy is enabled.
type Watchdog struct {
	sampler   Sampler
	terminate func(total uint64)
	log       *zap.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	policy  Policy
	changed chan struct{}
	fired   atomic.Bool
}

// New creates a watchdog with the given initial policy. Nothing is polled
// until Run is called.
func New(opts Options, policy Policy) *Watchdog {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sampler == nil {
		opts.Sampler = NewSampler()
	}
	return &Watchdog{
		sampler:   opts.Sampler,
		terminate: opts.Terminate,
		log:       opts.Logger.Named("watchdog"),
		metrics:   opts.Metrics,
		policy:    normalize(policy),
		changed:   make(chan struct{}, 1),
	}
}

func normalize(p Policy) Policy {
	if p.ThresholdGiB < 0 {
		p.ThresholdGiB = 0
	}
	if p.PollInterval <= 0 {
		p.PollInterval = models.DefaultPollInterval
	}
	return p
}

// Policy returns the policy currently in force.
func (w *Watchdog) Policy() Policy {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.policy
}

// SetPolicy replaces the policy. The running timer is stopped and, if the
// new policy is enabled, restarted with an immediate poll. A poll already
// in progress finishes and is judged against the new policy.
func (w *Watchdog) SetPolicy(p Policy) {
	w.mu.Lock()
	w.policy = normalize(p)
	w.mu.Unlock()

	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// Fired reports whether the watchdog has called Terminate.
func (w *Watchdog) Fired() bool {
	return w.fired.Load()
}

// Run drives the poll timer until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	stop := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tick = nil
		}
	}
	defer stop()

	arm := func() {
		stop()
		p := w.Policy()
		w.metrics.WatchdogArmed(p.Enabled())
		if !p.Enabled() {
			w.log.Debug("Watchdog disarmed")
			return
		}
		w.log.Info("Watchdog armed",
			zap.Int("threshold_gib", p.ThresholdGiB),
			zap.Duration("interval", p.PollInterval))
		ticker = time.NewTicker(p.PollInterval)
		tick = ticker.C
		w.Poll(ctx)
	}

	arm()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.changed:
			arm()
		case <-tick:
			w.Poll(ctx)
		}
	}
}

// Poll takes one sample and terminates if it exceeds the threshold of the
// policy in force once the sample completes. A failed sample counts as zero.
// It reports whether this call triggered termination.
func (w *Watchdog) Poll(ctx context.Context) bool {
	total, err := w.sampler.Sample(ctx)
	if err != nil {
		w.log.Warn("Memory sample failed, treating as zero", zap.Error(err))
		total = 0
	}
	w.metrics.MemorySampled(total, err != nil)

	p := w.Policy()
	if !p.Enabled() {
		return false
	}

	limit := p.ThresholdBytes()
	w.log.Debug("Memory sampled", zap.Uint64("bytes", total), zap.Uint64("limit", limit))
	if total <= limit {
		return false
	}

	if !w.fired.CompareAndSwap(false, true) {
		return false
	}
	w.log.Error("Memory limit exceeded, terminating",
		zap.Uint64("bytes", total),
		zap.Uint64("limit", limit),
		zap.Int("threshold_gib", p.ThresholdGiB))
	if w.terminate != nil {
		w.terminate(total)
	}
	return true
}

//go:build unix && !linux

package watchdog

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

type psSampler struct{}

// NewSampler returns the platform sampler. Outside Linux it shells out to ps.
func NewSampler() Sampler {
	return psSampler{}
}

func (psSampler) Sample(ctx context.Context) (uint64, error) {
	out, err := exec.CommandContext(ctx, "ps", "-eo", "pid=,ppid=,pgid=,rss=").Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ps: %w", err)
	}
	procs, err := parsePS(out)
	if err != nil {
		return 0, err
	}

	self := os.Getpid()
	pgid, err := unix.Getpgid(self)
	if err != nil {
		return 0, fmt.Errorf("failed to get process group: %w", err)
	}
	return sumGroup(procs, self, pgid), nil
}

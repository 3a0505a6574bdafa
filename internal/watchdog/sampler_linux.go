package watchdog

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

type procfsSampler struct{}

// NewSampler returns the platform sampler. On Linux it reads /proc.
func NewSampler() Sampler {
	return procfsSampler{}
}

func (procfsSampler) Sample(ctx context.Context) (uint64, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0, fmt.Errorf("failed to open procfs: %w", err)
	}
	all, err := fs.AllProcs()
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	self := os.Getpid()
	pgid, err := unix.Getpgid(self)
	if err != nil {
		return 0, fmt.Errorf("failed to get process group: %w", err)
	}

	procs := make([]proc, 0, len(all))
	for _, p := range all {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		// Processes can exit between listing and reading.
		stat, err := p.Stat()
		if err != nil {
			continue
		}
		procs = append(procs, proc{
			pid:  stat.PID,
			ppid: stat.PPID,
			pgid: stat.PGRP,
			rss:  uint64(stat.ResidentMemory()),
		})
	}
	return sumGroup(procs, self, pgid), nil
}

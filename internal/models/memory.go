package models

import "time"

// DefaultPollInterval is how often the watchdog samples memory.
const DefaultPollInterval = 30 * time.Second

// MemoryPolicy configures the memory watchdog. ThresholdGiB == 0 disables it.
type MemoryPolicy struct {
	ThresholdGiB int
	PollInterval time.Duration
}

// Enabled reports whether the policy arms the watchdog.
func (p MemoryPolicy) Enabled() bool {
	return p.ThresholdGiB > 0
}

// ThresholdBytes returns the threshold in bytes.
func (p MemoryPolicy) ThresholdBytes() uint64 {
	if p.ThresholdGiB <= 0 {
		return 0
	}
	return uint64(p.ThresholdGiB) << 30
}

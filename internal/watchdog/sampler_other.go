//go:build !unix

package watchdog

import "context"

type zeroSampler struct{}

// NewSampler returns the platform sampler. Process groups are only measured
// on unix; elsewhere (Windows, plan9, wasm) the sample is always zero and
// the watchdog never fires.
func NewSampler() Sampler {
	return zeroSampler{}
}

func (zeroSampler) Sample(context.Context) (uint64, error) {
	return 0, nil
}

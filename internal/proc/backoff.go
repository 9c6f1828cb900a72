// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proc

import (
	"math/rand"
	"time"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
	jitterFraction   = 0.25
)

// backoff produces exponential delays with jitter, capped at a maximum.
type backoff struct {
	base time.Duration
	max  time.Duration
	rng  *rand.Rand
}

func newBackoff(policy RetryPolicy) *backoff {
	base := policy.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	max := policy.MaxDelay
	if max <= 0 {
		max = defaultMaxDelay
	}
	seed := policy.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &backoff{
		base: base,
		max:  max,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Delay returns the delay before retrying after the given zero-based
// attempt: base*2^attempt with ±25% jitter, clamped to max.
func (b *backoff) Delay(attempt int) time.Duration {
	d := b.base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d > b.max {
			break
		}
	}

	// Uniform in [1-jitter, 1+jitter]
	factor := 1 + jitterFraction*(2*b.rng.Float64()-1)
	d = time.Duration(float64(d) * factor)

	if d > b.max {
		d = b.max
	}
	return d
}

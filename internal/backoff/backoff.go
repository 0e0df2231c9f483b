// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/backoff.rs and src/util.rs

// Package backoff implements a bounded exponential retry interval
// generator, owned by a single accept loop or dial loop.
package backoff

import "time"

// Backoff generates a bounded exponential sequence of retry intervals:
// min, min*2, min*4, ..., capped at max.
//
// A [*Backoff] is owned by exactly one loop (a server accept loop or the
// client's dial loop) and is never shared across goroutines — unlike
// original_source/src/backoff.rs's atomic implementation, which needed to
// support sharing a single Backoff across a repeated connect future. Each
// loop here owns a private Backoff, so no synchronization is needed.
type Backoff struct {
	value time.Duration
	min   time.Duration
	max   time.Duration
}

// New returns a [*Backoff] bounded to [min, max]. The first call to
// [*Backoff.Next] returns min.
func New(min, max time.Duration) *Backoff {
	return &Backoff{value: min, min: min, max: max}
}

// Next returns the current interval and advances the sequence: the next
// call returns min(current*2, max).
func (b *Backoff) Next() time.Duration {
	value := b.value
	doubled := b.value * 2
	if doubled > b.max || doubled < b.value /* overflow */ {
		doubled = b.max
	}
	b.value = doubled
	return value
}

// Reset restores the sequence to its initial state; the next call to
// [*Backoff.Next] will again return min.
func (b *Backoff) Reset() {
	b.value = b.min
}

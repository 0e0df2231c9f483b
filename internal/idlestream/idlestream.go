// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/stream.rs (RepeatWith, the run-ahead
// production combinator) and future.rs's poll-loop style, reinterpreted
// as a goroutine over channels instead of a hand-rolled Future/Stream —
// see DESIGN.md for why this is the one place the translation departs
// from the original's shape rather than its structure.

// Package idlestream implements the run-ahead producer / demand-driven
// consumer scheduling primitive: a dedicated goroutine drives a blocking
// producer continuously, a single-slot channel hands finished items to a
// consumer that pulls them one at a time, and the producer never sits idle
// waiting on that pull — it only blocks once it has a value ready to hand
// over and no one has taken the previous one yet.
package idlestream

import (
	"context"
	"runtime"
	"sync/atomic"
)

// RequestToken represents the single outstanding request a [Stream]'s
// runner goroutine holds against its producer. It must be consumed exactly
// once, via the protocol [Spawn] implements; a token reachable by the
// garbage collector without having been consumed indicates the producer
// discarded demand, which is a deadlock bug and panics instead of silently
// leaking.
type RequestToken struct {
	marker *tokenMarker
}

type tokenMarker struct {
	consumed atomic.Bool
}

// NewRequestToken creates a token for callers that implement their own
// request/response protocol directly (e.g. a producer that must race
// production against demand arrival, which needs visibility into "a
// consumer wants one" before production completes — see
// internal/server's gateway and public streams) instead of going through
// [Spawn].
func NewRequestToken() RequestToken {
	return newRequestToken()
}

func newRequestToken() RequestToken {
	m := &tokenMarker{}
	runtime.SetFinalizer(m, finalizeTokenMarker)
	return RequestToken{marker: m}
}

func finalizeTokenMarker(m *tokenMarker) {
	if !m.consumed.Load() {
		panic("idlestream: RequestToken dropped without being consumed")
	}
}

// Consume marks the token as accounted for, disarming the drop panic.
func (t RequestToken) Consume() {
	t.marker.consumed.Store(true)
}

// Producer performs one unit of (possibly blocking) idle work and returns
// the item to emit. tok represents the single outstanding request; Spawn's
// runner consumes it on the producer's behalf once produce returns, so
// implementations need only use tok's presence as proof they were asked for
// an item — they must not retain or pass it elsewhere.
//
// A non-nil error is terminal: the runner emits it as the item's error and
// stops.
type Producer[T any] func(ctx context.Context, tok RequestToken) (T, error)

type item[T any] struct {
	value T
	err   error
}

// Stream is the demand-driven consumer side of a spawned producer.
type Stream[T any] struct {
	requests  chan RequestToken
	responses chan item[T]
	cancel    context.CancelFunc
	done      chan struct{}
}

// Spawn starts produce in its own goroutine, running ahead of demand, and
// returns a [Stream] for callers to drain with [Stream.Next]. The returned
// stream must be closed with [Stream.Close] to release the goroutine.
func Spawn[T any](ctx context.Context, produce Producer[T]) *Stream[T] {
	runCtx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		requests:  make(chan RequestToken, 1),
		responses: make(chan item[T], 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go s.run(runCtx, produce)
	return s
}

// run implements the per-item protocol from the idle-scheduling contract:
// a fresh token is created and handed to the requests channel, then
// immediately read back — in this single-producer Go translation the
// runner plays both the "consumer requesting" and "producer reading" roles
// described by the original protocol, which is what preserves "exactly one
// outstanding request at a time" without needing a separate goroutine per
// side. produce then runs unconditionally (the eager, run-ahead part);
// only the final handoff on responses can block on a slow consumer.
func (s *Stream[T]) run(ctx context.Context, produce Producer[T]) {
	defer close(s.done)
	for {
		tok := newRequestToken()
		select {
		case s.requests <- tok:
		case <-ctx.Done():
			tok.Consume()
			return
		}

		tok = <-s.requests

		value, err := produce(ctx, tok)
		tok.Consume()

		select {
		case s.responses <- item[T]{value: value, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// Next blocks for the next produced item, returning produce's error
// (terminal: the stream is done afterward) or ctx's error if ctx is done
// first.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	select {
	case it := <-s.responses:
		return it.value, it.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops the runner goroutine and waits for it to exit. Safe to call
// more than once.
func (s *Stream[T]) Close() {
	s.cancel()
	<-s.done
}

// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/bassosimone-nop/func.go

// Package pipeline provides a generic, composable operation type. The
// client's address-list dial (internal/addrlist.DialFirst) uses it to bind
// each candidate address to the connect stage.
package pipeline

import "context"

// Func is a generic operation that accepts an input and returns a result.
//
// Func instances compose via [Compose2]..[Compose8] into type-safe
// pipelines where the output of one operation flows into the input of the
// next.
//
// Resource cleanup contract: when a Func receives a closeable resource as
// input and returns an error, it is responsible for closing that resource
// before returning, so composed pipelines don't leak a dialed connection on
// a later stage's failure.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter wraps a function as a [Func] implementation.
//
// Use this to build ad-hoc [Func] instances from closures for behavior that
// doesn't fit the existing primitives.
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}

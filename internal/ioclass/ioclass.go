// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/err.rs (IoErrorExt/AppliesTo)
// and from the platform split in github.com/bassosimone/nop's
// errclass/{unix,windows}.go.

// Package ioclass classifies accept-loop errors as either connection-scoped
// (transient, another accept may succeed immediately) or listener-scoped
// (the listener itself is in trouble; back off before retrying).
//
// This is a narrower, control-flow-only classification. It is distinct from
// [github.com/nstratos/tcprelay/internal/rlog.ErrClassifier], which produces
// a human-legible label for log fields and is never consulted here.
package ioclass

import (
	"errors"
	"syscall"
)

// AppliesTo says whether an accept error applies to the single connection
// that was being accepted, or to the listener as a whole.
type AppliesTo int

const (
	// Listener means the error is not specific to one connection attempt:
	// the listener itself may be unhealthy. Callers should back off.
	Listener AppliesTo = iota

	// Connection means the error is specific to the connection that was
	// being accepted (e.g. the peer reset before the accept completed).
	// Another accept is likely to succeed immediately; no backoff needed.
	Connection
)

// String implements [fmt.Stringer].
func (a AppliesTo) String() string {
	switch a {
	case Connection:
		return "connection"
	default:
		return "listener"
	}
}

// Classify classifies err per the rules in spec.md §4.6: ECONNREFUSED,
// ECONNABORTED, and ECONNRESET are connection-scoped; everything else is
// listener-scoped.
func Classify(err error) AppliesTo {
	var errno syscall.Errno
	if errors.As(err, &errno) && connectionScopedErrnos[uintptr(errno)] {
		return Connection
	}
	return Listener
}

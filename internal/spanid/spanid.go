// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop spanid.go

// Package spanid generates correlation identifiers used to join the log
// lines emitted by a single pairing attempt or splice.
package spanid

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// New returns a UUIDv7 string suitable for correlating the gateway-accept,
// handshake, heartbeat, and splice-outcome log lines of a single pairing
// attempt (attach it via [log/slog.Logger.With]).
//
// This function panics if the system random number generator fails, which
// should only happen under extraordinary circumstances.
func New() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}

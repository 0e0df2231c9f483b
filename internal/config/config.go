// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop config.go, enriched with
// the constants from original_source/src/config.rs and spec.md §3.

// Package config holds the tunable constants and shared dependencies used
// throughout the tunnel's core: buffer bounds, timeouts, the backoff range,
// the handshake/heartbeat tag bytes, and the dial dependencies (Dialer,
// ErrClassifier, TimeNow) that the dial pipeline needs.
package config

import (
	"context"
	"net"
	"time"

	"github.com/nstratos/tcprelay/internal/rlog"
)

// Dialer abstracts the [*net.Dialer] behavior.
//
// By depending on an abstract implementation we allow for unit testing and
// for using alternative dialers.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds the configuration shared by the server and client orchestrators.
//
// Pass this to constructor functions to pre-wire dependencies. All fields
// have sensible defaults set by [New].
type Config struct {
	// Dialer is used to dial gateway/private/public-facing addresses.
	//
	// Set by [New] to [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for the "errClass" structured log field.
	//
	// Set by [New] to [rlog.DefaultErrClassifier].
	ErrClassifier rlog.ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [New] to [time.Now].
	TimeNow func() time.Time

	// BufMin is the initial per-direction splice buffer size.
	BufMin int

	// BufMax is the largest a splice buffer is allowed to grow to.
	BufMax int

	// HandshakeTimeout bounds a single magic-byte read or write.
	HandshakeTimeout time.Duration

	// HeartbeatTimeout bounds a single heartbeat byte read, and sets the
	// write period (HeartbeatTimeout/2) on the writing side.
	HeartbeatTimeout time.Duration

	// QueueTimeout bounds how long a public connection may wait for a
	// gateway connection to pair with.
	QueueTimeout time.Duration

	// BackoffMin is the first retry interval after a failure or reset.
	BackoffMin time.Duration

	// BackoffMax is the retry interval ceiling.
	BackoffMax time.Duration

	// Magic is the single byte exchanged at the early and late handshake.
	Magic byte

	// HeartbeatTag is the byte written by the server for each heartbeat tick.
	HeartbeatTag byte

	// ExitTag is the byte that terminates the heartbeat phase.
	ExitTag byte

	// KeepAlive enables TCP keepalive on accepted/dialed connections.
	KeepAlive bool

	// KeepAlivePeriod is the keepalive probe interval, used when KeepAlive is set.
	KeepAlivePeriod time.Duration

	// TransferTimeout, when non-zero, closes a splice direction that sits
	// idle (no bytes moved) for longer than this. The spec's core leaves
	// this disabled (zero) because long-lived idle connections are
	// legitimate for a generic TCP tunnel; callers proxying short-lived
	// HTTP-like traffic may opt in. See spec.md §9, Open Questions.
	TransferTimeout time.Duration
}

// New creates a [*Config] with the defaults from spec.md §3.
func New() *Config {
	return &Config{
		Dialer:           &net.Dialer{},
		ErrClassifier:    rlog.DefaultErrClassifier,
		TimeNow:          time.Now,
		BufMin:           4 * 1024,
		BufMax:           2 * 1024 * 1024,
		HandshakeTimeout: 5 * time.Second,
		HeartbeatTimeout: 10 * time.Second,
		QueueTimeout:     60 * time.Second,
		BackoffMin:       1 * time.Second,
		BackoffMax:       64 * time.Second,
		Magic:            0x2A,
		HeartbeatTag:     0xDD,
		ExitTag:          0x1C,
		KeepAlive:        true,
		KeepAlivePeriod:  10 * time.Second,
		TransferTimeout:  0,
	}
}

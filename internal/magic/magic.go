// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/magic.rs

// Package magic implements the single-byte early/late handshake: a cheap
// filter against random TCP scanners, not authentication.
package magic

import (
	"errors"
	"io"
	"time"
)

// ErrMismatch is returned by [Read] when the peer's first byte is not the
// configured magic value.
var ErrMismatch = errors.New("magic: handshake byte mismatch")

// Conn is the minimal connection behavior [Read] and [Write] need: a
// deadline-bounded reader/writer. [*net.TCPConn] satisfies this, as does
// [github.com/bassosimone/netstub.FuncConn] in tests.
type Conn interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Read reads exactly one byte under timeout and compares it against want.
// Returns [ErrMismatch] on a mismatched byte, or the underlying read/deadline
// error (including a timeout) otherwise.
func Read(conn Conn, want byte, timeout time.Duration) error {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	defer conn.SetReadDeadline(time.Time{})

	var buf [1]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return err
	}
	if buf[0] != want {
		return ErrMismatch
	}
	return nil
}

// Write writes the single magic byte under timeout.
func Write(conn Conn, magic byte, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	defer conn.SetWriteDeadline(time.Time{})

	_, err := conn.Write([]byte{magic})
	return err
}

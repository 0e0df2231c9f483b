// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/rw.rs (the final BufState/try_copy
// design; earlier revisions conjoin.rs/tcp.rs used a fixed 4096-byte
// buffer and a separate ShutdownOnClose wrapper, superseded by the
// adaptive-buffer design kept here).

// Package splice bidirectionally relays bytes between two full-duplex
// connections, half-closing each direction independently as it reaches
// EOF, and never starving one direction while driving the other.
package splice

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/rlog"
)

// ErrWriteZero is returned when a write accepts zero bytes without error,
// which would otherwise spin the copy loop forever.
var ErrWriteZero = errors.New("splice: writer accepted zero bytes")

// Conn is the connection behavior splice needs from each side: reading,
// writing, and half-closing the write direction once its reader hits EOF.
// [*net.TCPConn] satisfies this via CloseWrite; so does
// [github.com/bassosimone/netstub.FuncConn] in tests.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
	CloseWrite() error
}

// deadliner is implemented by connections that support read deadlines; used
// only to enforce Config.TransferTimeout when it is non-zero.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Result reports the bytes transferred in each direction. Both fields are
// populated even when Splice returns an error, reflecting whatever each
// direction had moved before the failure.
type Result struct {
	// AToB is the number of bytes copied from a to b.
	AToB uint64

	// BToA is the number of bytes copied from b to a.
	BToA uint64
}

// Splice bidirectionally copies a<->b until both directions reach
// EOF-then-half-close, or either direction errors.
//
// On error in either direction, both connections are closed so the other
// direction's blocked Read unblocks promptly instead of leaking a goroutine
// forever; the aggregate error is returned alongside whatever byte counts
// each direction had already accumulated. Cancelling ctx has the same
// effect, letting a caller tear a splice down on process shutdown.
func Splice(ctx context.Context, a, b Conn, cfg *config.Config, logger rlog.SLogger) (Result, error) {
	if logger == nil {
		logger = rlog.DefaultSLogger()
	}

	var result Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := copyDirection(a, b, cfg, logger, "a->b")
		result.AToB = n
		return err
	})
	g.Go(func() error {
		n, err := copyDirection(b, a, cfg, logger, "b->a")
		result.BToA = n
		return err
	})
	// Not joined via g.Go: errgroup's context is only cancelled on the first
	// non-nil error, and g.Wait() only returns once every g.Go goroutine
	// has returned. On the happy path neither direction errors, so nothing
	// would ever cancel gctx to wake this goroutine, and g.Wait() would
	// never return waiting on it, a deadlock. done decouples "close on
	// the way out" from the errgroup's own completion gate.
	done := make(chan struct{})
	go func() {
		select {
		case <-gctx.Done():
			// Either a direction errored or the caller cancelled ctx; close
			// both ends so whichever direction is still blocked in Read
			// unblocks instead of holding this splice open forever.
		case <-done:
		}
		a.Close()
		b.Close()
	}()

	err := g.Wait()
	close(done)
	return result, err
}

// copyDirection implements the BufState state machine for a single
// direction: ReadWrite until EOF, then Shutdown (half-close dst's write
// side), then Done. The buffer starts at cfg.BufMin and doubles (capped at
// cfg.BufMax) every time a read completely fills it, approximating the
// throughput of a large fixed buffer while keeping idle connections cheap.
func copyDirection(src io.Reader, dst Conn, cfg *config.Config, logger rlog.SLogger, label string) (uint64, error) {
	buf := make([]byte, cfg.BufMin)
	var total uint64

	dl, hasDeadline := src.(deadliner)

	for {
		if hasDeadline && cfg.TransferTimeout > 0 {
			if err := dl.SetReadDeadline(time.Now().Add(cfg.TransferTimeout)); err != nil {
				return total, err
			}
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if err := writeFull(dst, buf[:n]); err != nil {
				return total, err
			}
			total += uint64(n)

			if n == len(buf) && len(buf) < cfg.BufMax {
				grown := len(buf) * 2
				if grown > cfg.BufMax {
					grown = cfg.BufMax
				}
				buf = make([]byte, grown)
				logger.Debug("splice buffer grow", "direction", label, "size", grown)
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return total, rerr
		}
		if n == 0 {
			// A zero-byte, error-free read is itself EOF for this state
			// machine: move straight to Shutdown rather than looping.
			break
		}
	}

	if err := dst.CloseWrite(); err != nil {
		return total, err
	}
	return total, nil
}

// writeFull writes all of p, treating a zero-byte write without error as
// ErrWriteZero rather than looping forever.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrWriteZero
		}
		p = p[n:]
	}
	return nil
}

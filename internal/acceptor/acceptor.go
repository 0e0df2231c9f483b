// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/err.rs's classify-then-retry accept
// loop shape, using internal/ioclass for the classification and
// internal/backoff for the listener-scoped retry delay.

// Package acceptor implements the classify-then-retry accept loop: a
// connection-scoped accept error (peer reset before accept completed) is
// retried immediately, a listener-scoped error backs off first. The loop
// never terminates the process; an exhausted backoff simply saturates at
// its configured maximum.
package acceptor

import (
	"context"
	"net"
	"time"

	"github.com/nstratos/tcprelay/internal/backoff"
	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/ioclass"
	"github.com/nstratos/tcprelay/internal/netopt"
	"github.com/nstratos/tcprelay/internal/rlog"
)

// Acceptor wraps a [net.Listener] with the classify-then-retry accept loop
// and per-connection socket tuning.
type Acceptor struct {
	ln      net.Listener
	cfg     *config.Config
	logger  rlog.SLogger
	backoff *backoff.Backoff
	stop    func() bool
}

// New wraps ln. Cancelling ctx closes ln, unblocking any in-progress
// Accept call.
func New(ctx context.Context, ln net.Listener, cfg *config.Config, logger rlog.SLogger) *Acceptor {
	if logger == nil {
		logger = rlog.DefaultSLogger()
	}
	a := &Acceptor{
		ln:      ln,
		cfg:     cfg,
		logger:  logger,
		backoff: backoff.New(cfg.BackoffMin, cfg.BackoffMax),
	}
	a.stop = context.AfterFunc(ctx, func() { ln.Close() })
	return a
}

// Accept returns the next accepted, socket-tuned connection, retrying
// internally per spec.md §4.6 until one is produced or ctx is done. ctx is
// checked between accept attempts; an Accept already blocked on the
// listener returns only once the listener is closed, which is what
// cancelling the ctx passed to [New] does.
func (a *Acceptor) Accept(ctx context.Context) (net.Conn, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, err := a.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			switch ioclass.Classify(err) {
			case ioclass.Connection:
				a.logger.Info("accept error", "scope", ioclass.Connection.String(), "err", err)
				continue
			default:
				a.logger.Info("accept error", "scope", ioclass.Listener.String(), "err", err)
				wait := a.backoff.Next()
				select {
				case <-time.After(wait):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}

		a.backoff.Reset()
		if err := netopt.Tune(conn, a.cfg.KeepAlive, a.cfg.KeepAlivePeriod); err != nil {
			a.logger.Info("socket tune error", "err", err)
			conn.Close()
			continue
		}
		return conn, nil
	}
}

// Close stops watching ctx for cancellation. It does not close the
// underlying listener; callers that want that should cancel the ctx
// passed to [New] instead, which is the path that also unblocks Accept.
func (a *Acceptor) Close() {
	a.stop()
}

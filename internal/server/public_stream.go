// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/server.rs (the public-accept stream:
// race a fresh connection's arrival against QUEUE_TIMEOUT, draining the
// listener's immediate backlog on expiry so kernel-queued connections
// don't sit behind a stale one forever).

package server

import (
	"context"
	"net"
	"time"

	"github.com/nstratos/tcprelay/internal/acceptor"
	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/rlog"
)

// publicStream produces public-facing connections paired with the deadline
// by which a gateway must be ready to pair with them. Like gatewayStream,
// it hands an item over as soon as demand arrives rather than buffering it
// a demand-driven race, not a buffered pipe.
type publicStream struct {
	ln       net.Listener
	acceptor *acceptor.Acceptor
	cfg      *config.Config
	logger   rlog.SLogger

	wantCh   chan struct{}
	resultCh chan publicItem
	cancel   context.CancelFunc
	done     chan struct{}
}

type publicItem struct {
	conn     net.Conn
	deadline time.Time
}

// listenerDeadline is implemented by [*net.TCPListener]; used only for the
// bounded immediate-accept drain on queue-timeout expiry.
type listenerDeadline interface {
	SetDeadline(t time.Time) error
}

func newPublicStream(ctx context.Context, ln net.Listener, acc *acceptor.Acceptor, cfg *config.Config, logger rlog.SLogger) *publicStream {
	runCtx, cancel := context.WithCancel(ctx)
	p := &publicStream{
		ln:       ln,
		acceptor: acc,
		cfg:      cfg,
		logger:   logger,
		wantCh:   make(chan struct{}, 1),
		resultCh: make(chan publicItem, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.run(runCtx)
	return p
}

func (p *publicStream) run(ctx context.Context) {
	defer close(p.done)
	for {
		conn, err := p.acceptor.Accept(ctx)
		if err != nil {
			return
		}

		deadline := p.cfg.TimeNow().Add(p.cfg.QueueTimeout)
		timer := time.NewTimer(p.cfg.QueueTimeout)

		select {
		case <-p.wantCh:
			timer.Stop()
			select {
			case p.resultCh <- publicItem{conn: conn, deadline: deadline}:
			case <-ctx.Done():
				conn.Close()
				return
			}
		case <-timer.C:
			p.logger.Info("public connection expired at idle")
			conn.Close()
			p.drainBacklog()
		case <-ctx.Done():
			timer.Stop()
			conn.Close()
			return
		}
	}
}

// drainBacklog best-effort-drains connections the kernel already queued
// behind the one that just expired, so the next Next() call doesn't hand
// out a connection that has effectively been waiting the whole QUEUE_TIMEOUT
// already. It bounds both the number of connections drained and the time
// spent per attempt, since a busy listener could otherwise have an
// unbounded backlog.
func (p *publicStream) drainBacklog() {
	dl, ok := p.ln.(listenerDeadline)
	if !ok {
		return
	}
	defer dl.SetDeadline(time.Time{})

	const drainLimit = 16
	for i := 0; i < drainLimit; i++ {
		if err := dl.SetDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return
		}
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}
}

// Next requests the next public connection, returning it alongside the
// deadline by which a gateway must be ready to pair with it.
func (p *publicStream) Next(ctx context.Context) (net.Conn, time.Time, error) {
	select {
	case p.wantCh <- struct{}{}:
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	}

	select {
	case item := <-p.resultCh:
		return item.conn, item.deadline, nil
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	}
}

func (p *publicStream) Close() {
	p.cancel()
	<-p.done
}

// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/server.rs (the final conjoin-based
// revision's gateway stream: accept, early handshake, then race a
// continuous heartbeat against the arrival of downstream demand).

package server

import (
	"context"
	"net"

	"github.com/nstratos/tcprelay/internal/acceptor"
	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/heartbeat"
	"github.com/nstratos/tcprelay/internal/idlestream"
	"github.com/nstratos/tcprelay/internal/magic"
	"github.com/nstratos/tcprelay/internal/rlog"
)

// gatewayStream produces gateway connections that have passed the early
// handshake and are actively heartbeating, handing one over as soon as a
// consumer calls Next — unlike [idlestream.Spawn], which hands a finished
// item to a single-slot buffer unconditionally, this producer's "finished"
// state (stop heartbeating, emit the connection) is itself gated on demand
// arriving, so it races production against a want signal rather than
// against buffer space. It still uses [idlestream.RequestToken] for the
// one-outstanding-request bookkeeping the wider design relies on.
type gatewayStream struct {
	acceptor *acceptor.Acceptor
	cfg      *config.Config
	logger   rlog.SLogger

	wantCh   chan gatewayRequest
	resultCh chan gatewayItem
	cancel   context.CancelFunc
	done     chan struct{}
}

// gatewayRequest carries the caller's own ctx alongside its token so run
// can tell a want that's still live from one whose caller already gave up
// (e.g. the pairing deadline in server.pairAndSplice elapsed) before
// committing a connection to it.
type gatewayRequest struct {
	tok idlestream.RequestToken
	ctx context.Context
}

type gatewayItem struct {
	conn net.Conn
}

func newGatewayStream(ctx context.Context, acc *acceptor.Acceptor, cfg *config.Config, logger rlog.SLogger) *gatewayStream {
	runCtx, cancel := context.WithCancel(ctx)
	g := &gatewayStream{
		acceptor: acc,
		cfg:      cfg,
		logger:   logger,
		wantCh:   make(chan gatewayRequest, 1),
		resultCh: make(chan gatewayItem),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go g.run(runCtx)
	return g
}

func (g *gatewayStream) run(ctx context.Context) {
	defer close(g.done)
	// If the loop below exits while a request is sitting in wantCh unread,
	// its token's finalizer would later panic on an unrelated goroutine as
	// "dropped without being consumed". raceDemand consumes every token it
	// dequeues (live or stale), so shutdown is the only path that can leave
	// one stranded; drain and consume it here.
	defer g.drainPendingWant()
	for {
		conn, err := g.acceptor.Accept(ctx)
		if err != nil {
			return
		}

		if err := magic.Read(conn, g.cfg.Magic, g.cfg.HandshakeTimeout); err != nil {
			g.logger.Info("gateway early handshake failed", "err", err)
			conn.Close()
			continue
		}

		hbCtx, cancelHB := context.WithCancel(ctx)
		hbDone := make(chan error, 1)
		go func() {
			hbDone <- heartbeat.WriteForever(hbCtx, conn, g.cfg.HeartbeatTag, g.cfg.HeartbeatTimeout/2)
		}()

		if !g.raceDemand(ctx, conn, cancelHB, hbDone) {
			return
		}
	}
}

// raceDemand races conn's heartbeat against the arrival of live demand,
// discarding any want whose caller has already given up (its ctx is done)
// instead of committing conn to a request nobody is waiting on anymore.
// Returns false once ctx is done and run should stop.
func (g *gatewayStream) raceDemand(ctx context.Context, conn net.Conn, cancelHB context.CancelFunc, hbDone chan error) bool {
	for {
		select {
		case req := <-g.wantCh:
			if req.ctx.Err() != nil {
				req.tok.Consume()
				continue
			}
			cancelHB()
			<-hbDone // discard: ctx.Canceled means we "won" the race
			req.tok.Consume()
			select {
			case g.resultCh <- gatewayItem{conn: conn}:
				return true
			case <-req.ctx.Done():
				// The caller gave up between the check above and delivery;
				// the heartbeat is already stopped, so the connection is no
				// longer worth salvaging.
				conn.Close()
				return true
			case <-ctx.Done():
				conn.Close()
				return false
			}
		case err := <-hbDone:
			cancelHB()
			g.logger.Info("gateway heartbeat failed", "err", err)
			conn.Close()
			return true
		case <-ctx.Done():
			cancelHB()
			conn.Close()
			return false
		}
	}
}

// Next requests the next heartbeating gateway connection, blocking until
// one is ready or ctx is done.
func (g *gatewayStream) Next(ctx context.Context) (net.Conn, error) {
	tok := idlestream.NewRequestToken()
	req := gatewayRequest{tok: tok, ctx: ctx}
	select {
	case g.wantCh <- req:
	case <-ctx.Done():
		tok.Consume()
		return nil, ctx.Err()
	}

	select {
	case item := <-g.resultCh:
		return item.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatewayStream) drainPendingWant() {
	select {
	case req := <-g.wantCh:
		req.tok.Consume()
	default:
	}
}

func (g *gatewayStream) Close() {
	g.cancel()
	<-g.done
}

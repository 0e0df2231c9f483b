// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/server.rs (the top-level pairing loop:
// pull a public connection, pull gateways until one survives the late
// handshake or the public connection's deadline elapses, then splice).

// Package server implements the reverse-tunnel server: it accepts gateway
// connections from the relay agent and public connections from the
// Internet-facing listener, pairs them, and splices their bytes together.
package server

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/nstratos/tcprelay/internal/acceptor"
	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/heartbeat"
	"github.com/nstratos/tcprelay/internal/magic"
	"github.com/nstratos/tcprelay/internal/rlog"
	"github.com/nstratos/tcprelay/internal/spanid"
	"github.com/nstratos/tcprelay/internal/splice"
)

// Server pairs gateway connections (from the relay agent) with public
// connections (from Internet-facing clients) and splices each pair.
type Server struct {
	cfg    *config.Config
	logger rlog.SLogger

	gatewayLn net.Listener
	publicLn  net.Listener

	activeSplices atomic.Int64
}

// New creates a Server listening for gateway connections on gatewayLn and
// public connections on publicLn. Both listeners should be TCP listeners;
// [splice.Conn]'s CloseWrite and the public-stream backlog drain's
// SetDeadline both assume the accepted connections are [*net.TCPConn] and
// publicLn is a [*net.TCPListener].
func New(cfg *config.Config, logger rlog.SLogger, gatewayLn, publicLn net.Listener) *Server {
	if logger == nil {
		logger = rlog.DefaultSLogger()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		gatewayLn: gatewayLn,
		publicLn:  publicLn,
	}
}

// ActiveSplices reports the number of splices currently in flight. It is a
// diagnostic counter only, not used for any flow control decision.
func (s *Server) ActiveSplices() int64 {
	return s.activeSplices.Load()
}

// Run pairs and splices connections until ctx is cancelled, at which point
// it stops accepting and returns ctx.Err(). Each pairing's splice is spawned
// as its own detached goroutine tied to the same ctx, so cancelling ctx also
// tears down every in-flight splice rather than leaving them to drain.
func (s *Server) Run(ctx context.Context) error {
	gwAcceptor := acceptor.New(ctx, s.gatewayLn, s.cfg, s.logger)
	defer gwAcceptor.Close()
	pubAcceptor := acceptor.New(ctx, s.publicLn, s.cfg, s.logger)
	defer pubAcceptor.Close()

	gw := newGatewayStream(ctx, gwAcceptor, s.cfg, s.logger)
	defer gw.Close()
	pub := newPublicStream(ctx, s.publicLn, pubAcceptor, s.cfg, s.logger)
	defer pub.Close()

	for {
		publicConn, deadline, err := pub.Next(ctx)
		if err != nil {
			return err
		}

		if err := s.pairAndSplice(ctx, gw, publicConn, deadline); err != nil {
			return err
		}
	}
}

// pairAndSplice pulls gateway connections until one survives the late
// handshake before deadline, then hands the pair off to a detached splice.
// A gateway that fails its late handshake is discarded and another is
// pulled without giving up the same public connection; a gateway that only
// becomes ready after deadline causes the whole pair to be dropped.
func (s *Server) pairAndSplice(ctx context.Context, gw *gatewayStream, publicConn net.Conn, deadline time.Time) error {
	for {
		pairCtx, cancel := context.WithDeadline(ctx, deadline)
		gatewayConn, err := gw.Next(pairCtx)
		cancel()
		if err != nil {
			publicConn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Info("pairing deadline elapsed before a gateway was ready")
			return nil
		}

		if err := heartbeat.WriteFinal(gatewayConn, s.cfg.ExitTag, s.cfg.HandshakeTimeout); err != nil {
			s.logger.Info("gateway late heartbeat write failed", "err", err)
			gatewayConn.Close()
			continue
		}
		if err := magic.Read(gatewayConn, s.cfg.Magic, s.cfg.HandshakeTimeout); err != nil {
			s.logger.Info("gateway late handshake failed", "err", err)
			gatewayConn.Close()
			continue
		}

		s.spawnSplice(ctx, publicConn, gatewayConn)
		return nil
	}
}

func (s *Server) spawnSplice(ctx context.Context, publicConn, gatewayConn net.Conn) {
	publicSp, ok := publicConn.(splice.Conn)
	if !ok {
		s.logger.Info("public connection does not support half-close, dropping")
		publicConn.Close()
		gatewayConn.Close()
		return
	}
	gatewaySp, ok := gatewayConn.(splice.Conn)
	if !ok {
		s.logger.Info("gateway connection does not support half-close, dropping")
		publicConn.Close()
		gatewayConn.Close()
		return
	}

	logger := spanLogger{base: s.logger, span: spanid.New()}
	s.activeSplices.Add(1)

	go func() {
		defer s.activeSplices.Add(-1)
		result, err := splice.Splice(ctx, publicSp, gatewaySp, s.cfg, logger)
		logger.Info("splice finished", "upBytes", result.AToB, "downBytes", result.BToA, "err", err)
	}()
}

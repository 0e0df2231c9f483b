// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: original_source/src/client.rs (the reconnect loop: dial
// the gateway, run the handshake/heartbeat protocol, dial the private
// target, splice, and retry with backoff on any step's failure).

// Package client implements the reverse-tunnel client: it dials a relay
// server's gateway listener, waits out the heartbeat phase until the
// server signals it has a public connection ready, dials the private
// target, and splices the two together. Any failure along the way is
// retried with exponential backoff.
package client

import (
	"context"
	"net/netip"
	"time"

	"github.com/nstratos/tcprelay/internal/addrlist"
	"github.com/nstratos/tcprelay/internal/backoff"
	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/heartbeat"
	"github.com/nstratos/tcprelay/internal/magic"
	"github.com/nstratos/tcprelay/internal/rlog"
	"github.com/nstratos/tcprelay/internal/splice"
)

// Client repeatedly connects to one of the gateway addresses, waits for
// the server to pair it with a public connection, and splices that
// pairing to one of the private addresses.
type Client struct {
	cfg      *config.Config
	logger   rlog.SLogger
	gateways []netip.AddrPort
	privates []netip.AddrPort
}

// New creates a Client that dials gateways and privates in order, retrying
// with cfg's backoff bounds on any failure.
func New(cfg *config.Config, logger rlog.SLogger, gateways, privates []netip.AddrPort) *Client {
	if logger == nil {
		logger = rlog.DefaultSLogger()
	}
	return &Client{cfg: cfg, logger: logger, gateways: gateways, privates: privates}
}

// Run loops until ctx is cancelled, attempting one tunnel per iteration.
// A successful iteration resets the backoff and loops again immediately,
// without waiting for the spliced connection to finish; a failed iteration
// sleeps for the next backoff interval before retrying.
func (c *Client) Run(ctx context.Context) error {
	b := backoff.New(c.cfg.BackoffMin, c.cfg.BackoffMax)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.attempt(ctx); err != nil {
			c.logger.Info("tunnel attempt failed", "err", err)
			wait := b.Next()
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		b.Reset()
	}
}

// attempt runs one full handshake-then-splice cycle: dial a gateway, run
// the early handshake, wait for the server's late-handshake signal, dial a
// private target, and spawn a detached splice. It returns as soon as the
// splice is spawned, without waiting for it to finish.
func (c *Client) attempt(ctx context.Context) error {
	gateway, err := addrlist.DialFirst(ctx, c.cfg, "tcp", c.logger, c.gateways)
	if err != nil {
		return err
	}

	if err := magic.Write(gateway, c.cfg.Magic, c.cfg.HandshakeTimeout); err != nil {
		gateway.Close()
		return err
	}

	if err := heartbeat.ReadUntilExit(gateway, c.cfg.HeartbeatTag, c.cfg.ExitTag, c.cfg.HeartbeatTimeout); err != nil {
		gateway.Close()
		return err
	}

	if err := magic.Write(gateway, c.cfg.Magic, c.cfg.HandshakeTimeout); err != nil {
		gateway.Close()
		return err
	}

	private, err := addrlist.DialFirst(ctx, c.cfg, "tcp", c.logger, c.privates)
	if err != nil {
		gateway.Close()
		return err
	}

	privateSp, ok := private.(splice.Conn)
	if !ok {
		c.logger.Info("private connection does not support half-close, dropping")
		gateway.Close()
		private.Close()
		return nil
	}
	gatewaySp, ok := gateway.(splice.Conn)
	if !ok {
		c.logger.Info("gateway connection does not support half-close, dropping")
		gateway.Close()
		private.Close()
		return nil
	}

	logger := c.logger
	go func() {
		result, err := splice.Splice(ctx, gatewaySp, privateSp, c.cfg, logger)
		logger.Info("splice finished", "upBytes", result.AToB, "downBytes", result.BToA, "err", err)
	}()

	return nil
}

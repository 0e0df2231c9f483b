// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/bassosimone-nop/connect.go

// Package dial provides composable internal/pipeline stages for outgoing
// connections: connect, observe, and cancel-watch. The client's gateway and
// private-service dials (internal/addrlist.DialFirst) use the connect stage
// alone; the observe and cancel-watch stages are not composed into them.
package dial

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/bassosimone/safeconn"

	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/pipeline"
	"github.com/nstratos/tcprelay/internal/rlog"
)

// NewConnectFunc returns a new [*ConnectFunc] wired from cfg.
func NewConnectFunc(cfg *config.Config, network string, logger rlog.SLogger) *ConnectFunc {
	return &ConnectFunc{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Network:       network,
		TimeNow:       cfg.TimeNow,
	}
}

// ConnectFunc dials a [netip.AddrPort] using a configured network.
//
// Returns either a valid [net.Conn] or an error, never both.
type ConnectFunc struct {
	Dialer        config.Dialer
	ErrClassifier rlog.ErrClassifier
	Logger        rlog.SLogger
	Network       string
	TimeNow       func() time.Time
}

var _ pipeline.Func[netip.AddrPort, net.Conn] = &ConnectFunc{}

// Call implements [pipeline.Func].
func (op *ConnectFunc) Call(ctx context.Context, address netip.AddrPort) (net.Conn, error) {
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logConnectStart(address.String(), t0, deadline)
	conn, err := op.Dialer.DialContext(ctx, op.Network, address.String())
	op.logConnectDone(address.String(), t0, deadline, conn, err)
	return conn, err
}

func (op *ConnectFunc) logConnectStart(address string, t0, deadline time.Time) {
	op.Logger.Info(
		"connectStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", op.Network),
		slog.String("remoteAddr", address),
		slog.Time("t", t0),
	)
}

func (op *ConnectFunc) logConnectDone(address string, t0, deadline time.Time, conn net.Conn, err error) {
	op.Logger.Info(
		"connectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", op.Network),
		slog.String("remoteAddr", address),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}

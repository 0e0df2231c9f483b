// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/bassosimone-nop/cancelwatch.go

package dial

import (
	"context"
	"net"

	"github.com/nstratos/tcprelay/internal/pipeline"
)

// NewCancelWatchFunc returns a new [*CancelWatchFunc].
func NewCancelWatchFunc() *CancelWatchFunc {
	return &CancelWatchFunc{}
}

// CancelWatchFunc arranges for a connection to be closed when its context is
// done, giving responsive cleanup on process shutdown (SIGINT via
// signal.NotifyContext) instead of waiting for a per-operation timeout.
//
// Use this where the context's lifetime matches the connection's intended
// lifetime (a gateway dial tied to the server's run context). Do not use it
// where the connection is handed off to outlive the context that created
// it — a dialed private-service connection handed to [splice.Splice] is
// instead watched by the splice's own ctx, not this stage's.
type CancelWatchFunc struct{}

var _ pipeline.Func[net.Conn, net.Conn] = &CancelWatchFunc{}

// Call implements [pipeline.Func].
func (op *CancelWatchFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	return &cancelWatchedConn{Conn: conn, stop: stop}, nil
}

type cancelWatchedConn struct {
	net.Conn
	stop func() bool
}

// Close unregisters the context watcher and closes the underlying connection.
func (c *cancelWatchedConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

// SPDX-License-Identifier: GPL-3.0-or-later

package acceptor

import (
	"context"
	"net"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstratos/tcprelay/internal/config"
)

// stubListener scripts a sequence of Accept outcomes. Once the script is
// exhausted, Accept blocks until Close is called, like a real listener
// would when the test never cancels ctx.
type stubListener struct {
	net.Listener // nil: only Accept/Close/Addr below are used
	calls        atomic.Int32
	results      []acceptResult
	closed       atomic.Bool
	closeCh      chan struct{}
}

type acceptResult struct {
	conn net.Conn
	err  error
}

func newStubListener(results ...acceptResult) *stubListener {
	return &stubListener{results: results, closeCh: make(chan struct{})}
}

func (s *stubListener) Accept() (net.Conn, error) {
	i := int(s.calls.Add(1)) - 1
	if i >= len(s.results) {
		<-s.closeCh
		return nil, net.ErrClosed
	}
	r := s.results[i]
	return r.conn, r.err
}

func (s *stubListener) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.closeCh)
	}
	return nil
}

func (s *stubListener) Addr() net.Addr { return nil }

func TestAcceptRetriesConnectionScopedErrorsImmediately(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	sl := newStubListener(
		acceptResult{err: syscall.ECONNRESET},
		acceptResult{err: syscall.ECONNABORTED},
		acceptResult{conn: server},
	)

	cfg := config.New()
	a := New(context.Background(), sl, cfg, nil)
	defer a.Close()

	got, err := a.Accept(context.Background())
	require.NoError(t, err)
	assert.Equal(t, server, got)
	assert.Equal(t, int32(3), sl.calls.Load())
}

func TestAcceptBacksOffOnListenerScopedError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	sl := newStubListener(
		acceptResult{err: syscall.EMFILE},
		acceptResult{conn: server},
	)

	cfg := config.New()
	cfg.BackoffMin = 5 * time.Millisecond
	cfg.BackoffMax = 20 * time.Millisecond
	a := New(context.Background(), sl, cfg, nil)
	defer a.Close()

	start := time.Now()
	got, err := a.Accept(context.Background())
	require.NoError(t, err)
	assert.Equal(t, server, got)
	assert.GreaterOrEqual(t, time.Since(start), cfg.BackoffMin)
}

func TestAcceptReturnsWhenContextDone(t *testing.T) {
	sl := newStubListener()
	cfg := config.New()

	// The ctx given to New is what closes the listener and so unblocks a
	// pending Accept; Accept's own ctx is only checked between attempts.
	ctx, cancel := context.WithCancel(context.Background())
	a := New(ctx, sl, cfg, nil)
	defer a.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := a.Accept(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClosesListenerWhenCtxCancelled(t *testing.T) {
	sl := newStubListener()
	cfg := config.New()

	ctx, cancel := context.WithCancel(context.Background())
	a := New(ctx, sl, cfg, nil)
	defer a.Close()

	cancel()
	require.Eventually(t, func() bool {
		return sl.closed.Load()
	}, time.Second, time.Millisecond)
}

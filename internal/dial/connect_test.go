// SPDX-License-Identifier: GPL-3.0-or-later

package dial

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/rlog"
)

func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}

func TestNewConnectFunc(t *testing.T) {
	cfg := config.New()
	logger := rlog.DefaultSLogger()

	fn := NewConnectFunc(cfg, "tcp", logger)

	require.NotNil(t, fn)
	assert.Equal(t, "tcp", fn.Network)
	assert.NotNil(t, fn.Dialer)
	assert.NotNil(t, fn.Logger)
	assert.NotNil(t, fn.TimeNow)
	assert.NotNil(t, fn.ErrClassifier)
}

func TestConnectFunc(t *testing.T) {
	tests := []struct {
		name    string
		dialer  *netstub.FuncDialer
		network string
		address netip.AddrPort
		wantErr bool
	}{
		{
			name: "successful TCP connect",
			dialer: &netstub.FuncDialer{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					conn := newMinimalConn()
					conn.CloseFunc = func() error { return nil }
					return conn, nil
				},
			},
			network: "tcp",
			address: netip.MustParseAddrPort("93.184.216.34:443"),
			wantErr: false,
		},
		{
			name: "dial error",
			dialer: &netstub.FuncDialer{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					return nil, errors.New("connection refused")
				},
			},
			network: "tcp",
			address: netip.MustParseAddrPort("93.184.216.34:443"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Dialer = tt.dialer

			fn := NewConnectFunc(cfg, tt.network, rlog.DefaultSLogger())
			conn, err := fn.Call(context.Background(), tt.address)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, conn)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, conn)
			conn.Close()
		})
	}
}

func TestConnectFuncContextTransparency(t *testing.T) {
	cfg := config.New()
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.New("should not reach here")
		},
	}

	fn := NewConnectFunc(cfg, "tcp", rlog.DefaultSLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()
	time.Sleep(10 * time.Millisecond)

	_, err := fn.Call(ctx, netip.MustParseAddrPort("93.184.216.34:443"))
	require.Error(t, err)
}

func TestConnectFuncLogging(t *testing.T) {
	logger, records := rlog.NewCapturingLogger()

	cfg := config.New()
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			conn := newMinimalConn()
			conn.CloseFunc = func() error { return nil }
			return conn, nil
		},
	}

	fn := NewConnectFunc(cfg, "tcp", logger)
	conn, err := fn.Call(context.Background(), netip.MustParseAddrPort("93.184.216.34:443"))
	require.NoError(t, err)
	conn.Close()

	require.Len(t, *records, 2)
	assert.Equal(t, "connectStart", (*records)[0].Message)
	assert.Equal(t, "connectDone", (*records)[1].Message)
}

// SPDX-License-Identifier: GPL-3.0-or-later

package addrlist

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/rlog"
)

type fakeResolver struct {
	hosts map[string][]string
}

func (r fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	ips, ok := r.hosts[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return ips, nil
}

func TestResolveFlattensInOrder(t *testing.T) {
	resolver := fakeResolver{hosts: map[string][]string{
		"a.example": {"10.0.0.1", "10.0.0.2"},
		"b.example": {"10.0.0.3"},
	}}

	got, err := Resolve(context.Background(), resolver, "a.example:9000, b.example:9001")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "10.0.0.1:9000", got[0].String())
	assert.Equal(t, "10.0.0.2:9000", got[1].String())
	assert.Equal(t, "10.0.0.3:9001", got[2].String())
}

func TestResolveEmptySpecYieldsEmptyList(t *testing.T) {
	got, err := Resolve(context.Background(), fakeResolver{hosts: map[string][]string{}}, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveLookupFailure(t *testing.T) {
	_, err := Resolve(context.Background(), fakeResolver{hosts: map[string][]string{}}, "missing.example:80")
	assert.Error(t, err)
}

func TestDialFirstReturnsErrNoAddressesOnEmptyList(t *testing.T) {
	_, err := DialFirst(context.Background(), config.New(), "tcp", rlog.DefaultSLogger(), nil)
	assert.ErrorIs(t, err, ErrNoAddresses)
}

func TestDialFirstTriesEachAddressInOrder(t *testing.T) {
	var tried []string
	cfg := config.New()
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			tried = append(tried, address)
			if address == "10.0.0.2:9000" {
				conn := &netstub.FuncConn{
					LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
					RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
				}
				return conn, nil
			}
			return nil, errors.New("refused")
		},
	}

	addrs, err := Resolve(context.Background(), fakeResolver{hosts: map[string][]string{
		"a.example": {"10.0.0.1", "10.0.0.2"},
	}}, "a.example:9000")
	require.NoError(t, err)

	conn, err := DialFirst(context.Background(), cfg, "tcp", rlog.DefaultSLogger(), addrs)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, []string{"10.0.0.1:9000", "10.0.0.2:9000"}, tried)
}

func TestDialFirstReturnsLastErrorWhenAllFail(t *testing.T) {
	cfg := config.New()
	wantErr := errors.New("last failure")
	calls := 0
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			calls++
			if calls == 2 {
				return nil, wantErr
			}
			return nil, errors.New("first failure")
		},
	}

	addrs, err := Resolve(context.Background(), fakeResolver{hosts: map[string][]string{
		"a.example": {"10.0.0.1", "10.0.0.2"},
	}}, "a.example:9000")
	require.NoError(t, err)

	_, err = DialFirst(context.Background(), cfg, "tcp", rlog.DefaultSLogger(), addrs)
	assert.ErrorIs(t, err, wantErr)
}

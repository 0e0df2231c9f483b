// SPDX-License-Identifier: GPL-3.0-or-later

package netopt

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTCPConn struct {
	net.Conn
	noDelay         bool
	keepAlive       bool
	keepAlivePeriod time.Duration
}

func (f *fakeTCPConn) SetNoDelay(v bool) error              { f.noDelay = v; return nil }
func (f *fakeTCPConn) SetKeepAlive(v bool) error            { f.keepAlive = v; return nil }
func (f *fakeTCPConn) SetKeepAlivePeriod(d time.Duration) error { f.keepAlivePeriod = d; return nil }

func TestTuneSetsNoDelayAndKeepAlive(t *testing.T) {
	c := &fakeTCPConn{}
	err := Tune(c, true, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, c.noDelay)
	assert.True(t, c.keepAlive)
	assert.Equal(t, 30*time.Second, c.keepAlivePeriod)
}

func TestTuneDisablesKeepAliveWithoutSettingPeriod(t *testing.T) {
	c := &fakeTCPConn{keepAlivePeriod: time.Minute}
	err := Tune(c, false, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, c.noDelay)
	assert.False(t, c.keepAlive)
	assert.Equal(t, time.Minute, c.keepAlivePeriod) // untouched
}

func TestTuneIgnoresUntunableConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	err := Tune(client, true, time.Second)
	assert.NoError(t, err)
}

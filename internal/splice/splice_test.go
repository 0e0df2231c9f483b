// SPDX-License-Identifier: GPL-3.0-or-later

package splice

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstratos/tcprelay/internal/config"
)

func tcpPair(t *testing.T) (a, b *net.TCPConn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		acceptCh <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	server := <-acceptCh
	require.NotNil(t, server)

	return client.(*net.TCPConn), server.(*net.TCPConn)
}

func TestSpliceCopiesBothDirectionsAndHalfCloses(t *testing.T) {
	a1, a2 := tcpPair(t)
	b1, b2 := tcpPair(t)
	defer a1.Close()
	defer a2.Close()
	defer b1.Close()
	defer b2.Close()

	cfg := config.New()
	cfg.BufMin = 8 // force growth with a small payload

	resultCh := make(chan struct {
		res Result
		err error
	}, 1)
	go func() {
		res, err := Splice(context.Background(), a2, b2, cfg, nil)
		resultCh <- struct {
			res Result
			err error
		}{res, err}
	}()

	payloadAB := []byte("hello from a, a long enough payload to force buffer growth past 8 bytes")
	payloadBA := []byte("hello from b")

	_, err := a1.Write(payloadAB)
	require.NoError(t, err)
	require.NoError(t, a1.CloseWrite())

	_, err = b1.Write(payloadBA)
	require.NoError(t, err)
	require.NoError(t, b1.CloseWrite())

	gotAB := make([]byte, len(payloadAB))
	_, err = readFull(b1, gotAB)
	require.NoError(t, err)
	assert.Equal(t, payloadAB, gotAB)

	gotBA := make([]byte, len(payloadBA))
	_, err = readFull(a1, gotBA)
	require.NoError(t, err)
	assert.Equal(t, payloadBA, gotBA)

	result := <-resultCh
	require.NoError(t, result.err)
	assert.Equal(t, uint64(len(payloadAB)), result.res.AToB)
	assert.Equal(t, uint64(len(payloadBA)), result.res.BToA)
}

func TestSpliceErrorClosesBothEnds(t *testing.T) {
	a1, a2 := tcpPair(t)
	b1, b2 := tcpPair(t)
	defer a1.Close()
	defer b1.Close()

	cfg := config.New()

	resultCh := make(chan error, 1)
	go func() {
		_, err := Splice(context.Background(), a2, b2, cfg, nil)
		resultCh <- err
	}()

	// Kill one leg abruptly (linger 0 makes Close send a reset rather than a
	// clean FIN, which would only end one direction); the other side's
	// pending read should unblock via the forced close instead of hanging
	// the test.
	a1.SetLinger(0)
	a1.Close()

	select {
	case err := <-resultCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Splice did not return after one leg was closed")
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

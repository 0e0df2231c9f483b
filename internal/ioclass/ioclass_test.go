// SPDX-License-Identifier: GPL-3.0-or-later

package ioclass

import (
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want AppliesTo
	}{
		{
			name: "connection reset",
			err:  wrapErrno(syscall.ECONNRESET),
			want: Connection,
		},
		{
			name: "connection refused",
			err:  wrapErrno(syscall.ECONNREFUSED),
			want: Connection,
		},
		{
			name: "connection aborted",
			err:  wrapErrno(syscall.ECONNABORTED),
			want: Connection,
		},
		{
			name: "generic invalid argument is listener-scoped",
			err:  wrapErrno(syscall.EINVAL),
			want: Listener,
		},
		{
			name: "plain error with no errno is listener-scoped",
			err:  errors.New("boom"),
			want: Listener,
		},
		{
			name: "nil error is listener-scoped",
			err:  nil,
			want: Listener,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestAppliesToString(t *testing.T) {
	assert.Equal(t, "connection", Connection.String())
	assert.Equal(t, "listener", Listener.String())
}

func wrapErrno(errno syscall.Errno) error {
	return &net.OpError{Op: "accept", Err: errno}
}

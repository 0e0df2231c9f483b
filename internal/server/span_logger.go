// SPDX-License-Identifier: GPL-3.0-or-later

package server

import "github.com/nstratos/tcprelay/internal/rlog"

// spanLogger prepends a correlation span to every log line, giving one
// splice's lines (buffer growth and the final outcome) a shared key to join
// on without requiring rlog.SLogger itself to support structured
// sub-loggers. Gateway accept, handshake and heartbeat lines are logged
// before the span exists and do not carry it.
type spanLogger struct {
	base rlog.SLogger
	span string
}

var _ rlog.SLogger = spanLogger{}

func (l spanLogger) Debug(msg string, args ...any) {
	l.base.Debug(msg, append([]any{"span", l.span}, args...)...)
}

func (l spanLogger) Info(msg string, args ...any) {
	l.base.Info(msg, append([]any{"span", l.span}, args...)...)
}

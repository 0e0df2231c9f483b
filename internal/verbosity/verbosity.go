// SPDX-License-Identifier: GPL-3.0-or-later

// Package verbosity implements the "-v counts stack" CLI flag shared by
// both binaries: each repetition of -v on the command line raises the log
// level by one step, from warn down through trace.
package verbosity

import (
	"fmt"
	"log/slog"
)

// levelTrace is one step below slog's built-in Debug, used once -v has been
// given three or more times.
const levelTrace = slog.LevelDebug - 4

// Flag implements [flag.Value] as a repeatable counter: each occurrence of
// -v on the command line calls Set once, incrementing the count.
type Flag struct {
	count int
}

// String implements [flag.Value].
func (f *Flag) String() string {
	return fmt.Sprintf("%d", f.count)
}

// Set implements [flag.Value]. It ignores its argument and increments the
// count, which is what lets -v be repeated as a boolean-style flag.
func (f *Flag) Set(string) error {
	f.count++
	return nil
}

// IsBoolFlag lets the standard flag package accept -v without a value,
// so it can be repeated as -v -v -v.
func (f *Flag) IsBoolFlag() bool {
	return true
}

// Level maps the accumulated count to a [slog.Level] per spec.md §6: 0=warn,
// 1=info, 2=debug, 3 or more=trace (one step below slog's own Debug floor,
// since this codebase has no dedicated trace level of its own).
func (f *Flag) Level() slog.Level {
	switch {
	case f.count <= 0:
		return slog.LevelWarn
	case f.count == 1:
		return slog.LevelInfo
	case f.count == 2:
		return slog.LevelDebug
	default:
		return levelTrace
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later

package rlog

import "github.com/bassosimone/errclass"

// ErrClassifier classifies errors into categorical strings for logging.
//
// Implementations map errors to short, descriptive labels (e.g., "ETIMEDOUT",
// "ECONNRESET") that make grepping the logs for a failure class easy. This
// is purely a logging convenience: it is never consulted for control flow.
// Control flow uses the coarser, typed [github.com/nstratos/tcprelay/internal/ioclass.AppliesTo]
// split instead.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using [errclass.New].
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)

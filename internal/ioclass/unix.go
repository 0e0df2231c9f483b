//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop errclass/unix.go
//

package ioclass

import "golang.org/x/sys/unix"

var connectionScopedErrnos = map[uintptr]bool{
	uintptr(unix.ECONNREFUSED): true,
	uintptr(unix.ECONNABORTED): true,
	uintptr(unix.ECONNRESET):   true,
}

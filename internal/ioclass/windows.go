//go:build windows

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop errclass/windows.go
//

package ioclass

import "golang.org/x/sys/windows"

var connectionScopedErrnos = map[uintptr]bool{
	uintptr(windows.WSAECONNREFUSED): true,
	uintptr(windows.WSAECONNABORTED): true,
	uintptr(windows.WSAECONNRESET):   true,
}

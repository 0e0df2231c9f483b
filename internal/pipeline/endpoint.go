// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/bassosimone-nop/endpoint.go

package pipeline

import "net/netip"

// NewEndpointFunc returns a [Func] that always returns the given
// [netip.AddrPort].
//
// This is a convenience wrapper around [ConstFunc] for the common case of
// injecting one candidate address from an address list into a dial
// pipeline.
func NewEndpointFunc(endpoint netip.AddrPort) Func[Unit, netip.AddrPort] {
	return ConstFunc(endpoint)
}

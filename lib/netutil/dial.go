// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"net"
)

// IsDialError reports whether err shows that a connection was never
// established, so the request provably did not reach the peer.
// Retrying such a request cannot duplicate work on the server side.
func IsDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

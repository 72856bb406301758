// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// contentETag returns a strong entity tag for a rendered diagram: the
// CIDv1 (raw codec, sha2-256) of its bytes. Identical output always
// gets the same tag, whichever replica or backend produced it.
func contentETag(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return `"` + cid.NewCidV1(cid.Raw, sum).String() + `"`, nil
}

// etagMatches reports whether an If-None-Match value names etag. Weak
// comparison applies, so W/ prefixes are ignored.
func etagMatches(ifNoneMatch, etag string) bool {
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

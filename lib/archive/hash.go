// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"github.com/zeebo/blake3"

	"github.com/muxar-format/muxar/lib/block"
)

// fileDomainKey is the BLAKE3 keyed-hash domain for file content
// digests carried in EndOfFile blocks. A fixed protocol constant —
// changing it invalidates the digests in every existing archive. The
// byte values are the ASCII domain name, zero-padded to 32 bytes, so
// the key is inspectable in hex dumps without losing any
// cryptographic property.
var fileDomainKey = [32]byte{
	'm', 'u', 'x', 'a', 'r', '.', 'f', 'i', 'l', 'e', 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// newFileHasher returns a streaming hasher for one file's content.
// The writer feeds it every appended byte; the extractor feeds it
// every extracted byte and compares against the EndOfFile digest.
func newFileHasher() *blake3.Hasher {
	hasher, err := blake3.NewKeyed(fileDomainKey[:])
	if err != nil {
		// NewKeyed only fails for a wrong key length, which the
		// fixed-size array rules out.
		panic("archive: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

// sumDigest finalizes a file hasher into the digest stored in its
// EndOfFile block.
func sumDigest(hasher *blake3.Hasher) block.Digest {
	var digest block.Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

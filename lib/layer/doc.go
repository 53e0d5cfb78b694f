// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

// Package layer implements the byte-stream transforms that sit
// between the muxar block stream and the physical archive file:
// streaming compression (zstd, lz4) and authenticated encryption
// (chunked XChaCha20-Poly1305).
//
// On the write side the block stream is compressed first and the
// compressed bytes are encrypted; on the read side the transforms are
// applied in reverse. The block layer above sees plain io.Writer and
// io.Reader values and stays unaware of which transforms are active.
//
// The transforms are the reason linear extraction avoids seeking:
// skipping bytes in a compressed or encrypted stream costs the same
// as reading them (decompression state must advance, and encrypted
// chunks must be authenticated whole), so the extractor reads every
// byte exactly once instead.
package layer

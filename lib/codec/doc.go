// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for muxar archive
// metadata (the archive header). Encoding is deterministic (RFC 8949
// §4.2 Core Deterministic Encoding) so the same header always
// produces identical bytes; decoding ignores unknown fields so older
// readers tolerate headers written by newer writers.
package codec

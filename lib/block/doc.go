// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

// Package block implements the codec for the four block kinds that
// make up a muxar archive stream: FileStart, FileContent, EndOfFile,
// and EndOfArchiveData.
//
// A muxar archive multiplexes any number of logically independent
// files into one physical byte sequence. Each file's lifecycle is a
// FileStart block, any number of FileContent blocks, and an EndOfFile
// block; blocks belonging to different files may interleave
// arbitrarily. The stream ends with exactly one EndOfArchiveData
// sentinel.
//
// Decode reads exactly one block header from the current position.
// For FileContent blocks the payload is deliberately left unread: the
// caller owns consuming or discarding those bytes before decoding the
// next block. This is what allows a single forward pass over the
// stream with bounded memory, regardless of file sizes.
package block

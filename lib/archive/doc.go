// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive implements writing and linearly extracting muxar
// archives: multiplexed, append-only containers in which any number
// of logical files interleave their content blocks within one
// physical byte stream.
//
// Writing: a Writer appends lifecycle blocks (FileStart, FileContent,
// EndOfFile) for files the caller opens, allowing several files to be
// open at once with their content blocks interleaved in call order.
// StreamWriter adapts one open file to io.Writer so io.Copy can push
// a length-unknown source into the archive without pre-buffering.
//
// Reading: Reader.LinearExtract demultiplexes the stream back into
// caller-supplied sinks in a single forward pass. It seeks exactly
// once (to the start of block data) and reads every byte exactly
// once; content for files the caller did not request is streamed to
// a discard sink rather than skipped by seeking, because the
// compression and cipher layers make seeking as expensive as reading.
// Memory is bounded by the number of simultaneously open requested
// files, not by archive size.
package archive

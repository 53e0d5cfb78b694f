// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/muxar-format/muxar/lib/block"
)

// ErrDigestMismatch reports that a file's extracted bytes do not hash
// to the digest carried in its EndOfFile block.
var ErrDigestMismatch = errors.New("file content digest mismatch")

// exportEntry is one registry slot: an open file the caller asked
// for, with the streaming digest of what has been copied to its sink.
type exportEntry struct {
	filename string
	hasher   *blake3.Hasher
}

// LinearExtract demultiplexes the archive into the caller's sinks in
// a single forward pass.
//
// export maps wanted filenames to their destinations. Files present
// in the archive but absent from export are fully consumed and
// discarded without error. Files present in export but absent from
// the archive leave their sink untouched; callers can detect that by
// comparing against ListFiles. The map is borrowed for the duration
// of the call and must outlive it.
//
// The pass seeks exactly once (to the start of block data) and then
// reads every byte exactly once. Skipping unwanted content by seeking
// is deliberately avoided: under the compression and cipher layers a
// seek costs as much as a read, or breaks chunk authentication.
// Memory use is bounded by the number of simultaneously open
// requested files, independent of archive or file sizes.
//
// Any decode, transport, or sink error aborts the pass immediately
// and is returned as-is; bytes already delivered to sinks are kept,
// not rolled back. Content or close blocks referencing an id with no
// open FileStart are absorbed silently.
func (r *Reader) LinearExtract(export map[string]io.Writer) error {
	stream, closeStream, err := r.openPass()
	if err != nil {
		return err
	}
	defer closeStream()

	// registry maps ids of currently-open wanted files to their
	// filenames. Its size — not the archive's — bounds the pass's
	// memory use, so only wanted files are ever registered.
	registry := make(map[block.FileID]*exportEntry)

	for {
		b, err := block.Decode(stream)
		if err != nil {
			return err
		}

		switch b.Type {
		case block.TypeFileStart:
			if _, wanted := export[b.Filename]; wanted {
				registry[b.ID] = &exportEntry{filename: b.Filename, hasher: newFileHasher()}
			}

		case block.TypeFileContent:
			entry, ok := registry[b.ID]
			if !ok {
				// Unwanted or dangling content: read and drop.
				if err := discardContent(stream, b.Length); err != nil {
					return err
				}
				continue
			}
			sink, wanted := export[entry.filename]
			if !wanted {
				if err := discardContent(stream, b.Length); err != nil {
					return err
				}
				continue
			}
			if err := copyContent(stream, sink, entry, b.Length); err != nil {
				return err
			}

		case block.TypeEndOfFile:
			// Absence is not an error: duplicate or unmatched close
			// markers are tolerated.
			entry, ok := registry[b.ID]
			if !ok {
				continue
			}
			delete(registry, b.ID)
			if digest := sumDigest(entry.hasher); digest != b.Digest {
				return fmt.Errorf("file %q: %w", entry.filename, ErrDigestMismatch)
			}

		case block.TypeEndOfArchiveData:
			return nil
		}
	}
}

// copyContent streams one content payload into the sink, feeding the
// entry's digest on the way. Sink failures are distinguished from
// source failures so callers can tell "my disk is full" from "the
// archive is cut short".
func copyContent(stream io.Reader, sink io.Writer, entry *exportEntry, length uint64) error {
	tagged := &sinkWriter{sink: sink}
	copied, err := io.Copy(io.MultiWriter(tagged, entry.hasher), io.LimitReader(stream, int64(length)))
	if tagged.err != nil {
		return fmt.Errorf("writing to sink for %q: %w", entry.filename, tagged.err)
	}
	if err != nil {
		return fmt.Errorf("content for %q: %w", entry.filename, mapCopyEOF(err))
	}
	if uint64(copied) != length {
		return fmt.Errorf("content for %q: %w", entry.filename, block.ErrTruncated)
	}
	return nil
}

// sinkWriter remembers whether a copy failure came from the caller's
// sink rather than from the archive source.
type sinkWriter struct {
	sink io.Writer
	err  error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.sink.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"github.com/muxar-format/muxar/lib/block"
)

// StreamWriter adapts one open archive file to io.Writer, for data
// sources whose length is unknown up front. Each non-empty Write call
// appends exactly one FileContent block, so io.Copy pushes an
// unbounded source into the archive chunk by chunk without
// pre-buffering. Callers wanting fewer, larger blocks buffer before
// writing.
//
// The adapter only has authority over its own file id: Flush pushes
// buffered bytes toward the physical sink but never ends the file,
// because other files may be open concurrently on the same archive.
// Closing the file remains an explicit Writer.EndFile call.
type StreamWriter struct {
	archive *Writer
	id      block.FileID
}

// NewStreamWriter returns a StreamWriter appending to the given open
// file id. The id must have been returned by archive.StartFile and
// not yet ended.
func NewStreamWriter(archive *Writer, id block.FileID) *StreamWriter {
	return &StreamWriter{archive: archive, id: id}
}

// Write appends p as one content block, all-or-nothing: either the
// whole slice is appended or an error is returned and nothing from
// this call is in the archive. Empty writes append nothing.
func (sw *StreamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := sw.archive.AppendContent(sw.id, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush delegates to the archive writer's flush.
func (sw *StreamWriter) Flush() error {
	return sw.archive.Flush()
}

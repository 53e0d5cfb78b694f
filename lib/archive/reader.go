// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/muxar-format/muxar/lib/block"
	"github.com/muxar-format/muxar/lib/layer"
	"github.com/muxar-format/muxar/lib/secret"
)

// readBufferSize is the read-ahead buffer wrapped around the layer
// stack during a pass. Block decoding issues many small reads (type
// bytes, varints); the buffer coalesces them into larger reads from
// the decompressor.
const readBufferSize = 64 * 1024

// ReaderOptions configures opening an archive.
type ReaderOptions struct {
	// Key is the 32-byte archive key for encrypted archives.
	// Borrowed: the reader uses it when opening passes and never
	// closes it. Required when the archive header names a cipher.
	Key *secret.Buffer
}

// Reader opens a muxar archive for listing and linear extraction.
//
// A Reader is single-owner: during any pass (ListFiles or
// LinearExtract) it has exclusive use of the underlying source, and
// no other traversal of that source may happen concurrently.
type Reader struct {
	src         io.ReadSeeker
	compression layer.Compression
	cipher      layer.Cipher
	salt        []byte
	key         *secret.Buffer

	// dataOffset is the byte offset of the first block-data byte,
	// immediately after the magic and header. Every pass starts with
	// exactly one seek to this offset.
	dataOffset int64
}

// NewReader validates the archive magic, decodes the header, and
// prepares for pass-based reading. The source position after
// NewReader is unspecified; each pass repositions it.
func NewReader(src io.ReadSeeker, options ReaderOptions) (*Reader, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to archive start: %w", err)
	}

	header, dataOffset, err := readHeader(src)
	if err != nil {
		return nil, err
	}
	compression, cipher, err := header.parseLayers()
	if err != nil {
		return nil, err
	}
	if cipher != layer.CipherNone && options.Key == nil {
		return nil, fmt.Errorf("archive is encrypted with %s: a key is required", cipher)
	}

	return &Reader{
		src:         src,
		compression: compression,
		cipher:      cipher,
		salt:        header.Salt,
		key:         options.Key,
		dataOffset:  dataOffset,
	}, nil
}

// openPass seeks to the start of block data — the only seek in the
// pass — and assembles the read-side layer stack wrapped in
// read-ahead buffering. The returned close function releases
// decompressor resources; it does not close the source.
func (r *Reader) openPass() (*bufio.Reader, func() error, error) {
	if _, err := r.src.Seek(r.dataOffset, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("seeking to block data: %w", err)
	}

	cipherReader, err := r.cipher.NewCipherReader(r.src, r.key, r.salt)
	if err != nil {
		return nil, nil, err
	}
	compressReader, err := r.compression.NewReader(cipherReader)
	if err != nil {
		cipherReader.Close()
		return nil, nil, err
	}

	closeAll := func() error {
		if err := compressReader.Close(); err != nil {
			cipherReader.Close()
			return err
		}
		return cipherReader.Close()
	}
	return bufio.NewReaderSize(compressReader, readBufferSize), closeAll, nil
}

// ListFiles returns the filenames present in the archive, in the
// order their FileStart blocks appear. It performs one forward pass,
// discarding all content; calling it again restarts the listing.
// Callers use the result to build the export map for LinearExtract.
func (r *Reader) ListFiles() ([]string, error) {
	stream, closeStream, err := r.openPass()
	if err != nil {
		return nil, err
	}
	defer closeStream()

	var names []string
	for {
		b, err := block.Decode(stream)
		if err != nil {
			return nil, err
		}

		switch b.Type {
		case block.TypeFileStart:
			names = append(names, b.Filename)

		case block.TypeFileContent:
			if err := discardContent(stream, b.Length); err != nil {
				return nil, err
			}

		case block.TypeEndOfFile:
			// Nothing to track when only listing names.

		case block.TypeEndOfArchiveData:
			return names, nil
		}
	}
}

// discardContent consumes a content payload without buffering it.
func discardContent(stream io.Reader, length uint64) error {
	if _, err := io.CopyN(io.Discard, stream, int64(length)); err != nil {
		return fmt.Errorf("discarding content: %w", mapCopyEOF(err))
	}
	return nil
}

// mapCopyEOF folds EOF inside a declared-length payload into the
// truncation error kind.
func mapCopyEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return block.ErrTruncated
	}
	return err
}

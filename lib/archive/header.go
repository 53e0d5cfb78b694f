// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/muxar-format/muxar/lib/block"
	"github.com/muxar-format/muxar/lib/codec"
	"github.com/muxar-format/muxar/lib/layer"
)

// Format constants.
const (
	// formatVersion is the archive format version carried in the
	// magic. Version 1 is the initial format.
	formatVersion = 1

	// maxHeaderSize bounds the CBOR header so a corrupt length
	// prefix cannot demand an arbitrary allocation.
	maxHeaderSize = 64 * 1024
)

// archiveMagic is the 8-byte archive file signature: "MUXAR" +
// NUL + version byte + reserved byte.
var archiveMagic = [8]byte{'M', 'U', 'X', 'A', 'R', 0, formatVersion, 0}

// archiveHeader is the CBOR-encoded metadata written after the magic:
// which layer transforms the block stream passes through, plus the
// cipher's KDF salt. It is length-prefixed with a uvarint so readers
// can compute the block-data offset without over-reading.
type archiveHeader struct {
	Compression string `cbor:"compression"`
	Cipher      string `cbor:"cipher"`
	Salt        []byte `cbor:"salt,omitempty"`
}

// writeHeader writes the magic and the length-prefixed CBOR header to
// w, returning the total number of bytes written.
func writeHeader(w io.Writer, header archiveHeader) (int64, error) {
	encoded, err := codec.Marshal(header)
	if err != nil {
		return 0, fmt.Errorf("encoding archive header: %w", err)
	}

	out := make([]byte, 0, len(archiveMagic)+binary.MaxVarintLen64+len(encoded))
	out = append(out, archiveMagic[:]...)
	out = binary.AppendUvarint(out, uint64(len(encoded)))
	out = append(out, encoded...)

	if _, err := w.Write(out); err != nil {
		return 0, fmt.Errorf("writing archive header: %w", err)
	}
	return int64(len(out)), nil
}

// readHeader validates the magic and decodes the header from r,
// returning the header and the offset of the first block-data byte.
func readHeader(r io.Reader) (archiveHeader, int64, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return archiveHeader{}, 0, fmt.Errorf("reading archive magic: %w", mapHeaderEOF(err))
	}
	if magic != archiveMagic {
		if magic[0] == 'M' && magic[1] == 'U' && magic[2] == 'X' &&
			magic[3] == 'A' && magic[4] == 'R' && magic[5] == 0 {
			return archiveHeader{}, 0, fmt.Errorf("archive format version %d is not supported (this code supports version %d)",
				magic[6], formatVersion)
		}
		return archiveHeader{}, 0, fmt.Errorf("not a muxar archive (invalid magic bytes)")
	}

	// The uvarint length prefix is read byte by byte so no header
	// bytes beyond the prefix are consumed prematurely.
	prefix := &countingByteReader{r: r}
	headerLength, err := binary.ReadUvarint(prefix)
	if err != nil {
		return archiveHeader{}, 0, fmt.Errorf("reading header length: %w", mapHeaderEOF(err))
	}
	if headerLength > maxHeaderSize {
		return archiveHeader{}, 0, fmt.Errorf("header length %d exceeds maximum %d", headerLength, maxHeaderSize)
	}

	encoded := make([]byte, headerLength)
	if _, err := io.ReadFull(r, encoded); err != nil {
		return archiveHeader{}, 0, fmt.Errorf("reading archive header: %w", mapHeaderEOF(err))
	}

	var header archiveHeader
	if err := codec.Unmarshal(encoded, &header); err != nil {
		return archiveHeader{}, 0, fmt.Errorf("decoding archive header: %w", err)
	}

	dataOffset := int64(len(archiveMagic)) + int64(prefix.count) + int64(headerLength)
	return header, dataOffset, nil
}

// parseLayers resolves the header's layer tags.
func (h archiveHeader) parseLayers() (layer.Compression, layer.Cipher, error) {
	compression, err := layer.ParseCompression(h.Compression)
	if err != nil {
		return 0, 0, fmt.Errorf("archive header: %w", err)
	}
	cipher, err := layer.ParseCipher(h.Cipher)
	if err != nil {
		return 0, 0, fmt.Errorf("archive header: %w", err)
	}
	if cipher != layer.CipherNone && len(h.Salt) != layer.SaltSize {
		return 0, 0, fmt.Errorf("archive header: cipher %s requires a %d-byte salt, got %d",
			cipher, layer.SaltSize, len(h.Salt))
	}
	return compression, cipher, nil
}

// mapHeaderEOF folds the EOF variants into the block layer's
// truncation kind so "file too short to be an archive" and "stream
// ended before the sentinel" surface as one error family.
func mapHeaderEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return block.ErrTruncated
	}
	return err
}

// countingByteReader counts the bytes consumed by uvarint decoding so
// the block-data offset is exact.
type countingByteReader struct {
	r     io.Reader
	count int
}

func (c *countingByteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return 0, err
	}
	c.count++
	return buf[0], nil
}

// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the compression transform of an archive.
// The tag is recorded in the archive header; these values are
// protocol constants — changing them breaks format compatibility.
type Compression uint8

const (
	// CompressionNone passes the block stream through unchanged.
	// Used when the content is already compressed (media, packfiles)
	// and recompression would cost CPU without reducing size.
	CompressionNone Compression = 0

	// CompressionZstd is streaming zstd at the default level. Good
	// ratios for text-like content with fast decode.
	CompressionZstd Compression = 1

	// CompressionLZ4 is streaming LZ4 frame compression. Lower
	// ratios than zstd but very fast on both sides; the safer pick
	// for mixed or unknown content.
	CompressionLZ4 Compression = 2
)

// String returns the header name of a compression tag.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression tag from its header name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// NewWriter wraps w in the streaming compressor for this tag. The
// returned writer must be closed to flush the compressor's final
// frame; closing it does not close w.
func (c Compression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil

	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return encoder, nil

	case CompressionLZ4:
		return lz4.NewWriter(w), nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", c)
	}
}

// NewReader wraps r in the streaming decompressor for this tag.
// Closing the returned reader releases decompressor resources; it
// does not close r.
func (c Compression) NewReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil

	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return decoder.IOReadCloser(), nil

	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", c)
	}
}

// nopWriteCloser passes writes through and makes Close a no-op, so
// the uncompressed path has the same shape as the compressed ones.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

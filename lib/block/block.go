// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package block

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Type identifies a block kind. Type values are protocol constants —
// changing them breaks archive format compatibility.
type Type uint8

const (
	// TypeFileStart opens a logical file and introduces its id.
	TypeFileStart Type = 0x01

	// TypeFileContent carries a run of content bytes for an open id.
	// The payload immediately follows the block header in the stream.
	TypeFileContent Type = 0x02

	// TypeEndOfFile closes an id. It carries the BLAKE3 digest of the
	// file's full content so readers can verify what they extracted.
	TypeEndOfFile Type = 0x03

	// TypeEndOfArchiveData is the terminal sentinel. Exactly one per
	// stream, no payload; nothing is read after it.
	TypeEndOfArchiveData Type = 0x04
)

// String returns the human-readable name of a block type.
func (t Type) String() string {
	switch t {
	case TypeFileStart:
		return "file-start"
	case TypeFileContent:
		return "file-content"
	case TypeEndOfFile:
		return "end-of-file"
	case TypeEndOfArchiveData:
		return "end-of-archive-data"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// FileID identifies one logical file within a stream. Ids are
// allocated by the writer from a monotonically increasing counter and
// are unique among files concurrently open in the stream; they are
// never reused after EndOfFile.
type FileID uint64

// Digest is a 32-byte BLAKE3 file digest carried by EndOfFile blocks.
type Digest [32]byte

// MaxFilenameLength bounds the filename field of FileStart blocks.
// A length beyond this is treated as a malformed header rather than
// an allocation request.
const MaxFilenameLength = 4096

// Decode error kinds. Callers branch with errors.Is; the returned
// errors wrap these sentinels with positional context.
var (
	// ErrTruncated reports that the stream ended inside a block
	// header, or ended at a block boundary before the
	// EndOfArchiveData sentinel was seen.
	ErrTruncated = errors.New("truncated archive stream")

	// ErrUnknownBlockType reports a discriminant byte outside the
	// four known block kinds.
	ErrUnknownBlockType = errors.New("unknown block type")

	// ErrInvalidLength reports a length field that cannot describe a
	// real payload (overflowing int64, or a filename beyond
	// MaxFilenameLength).
	ErrInvalidLength = errors.New("invalid block length")
)

// Block is one decoded block header. Which fields are meaningful
// depends on Type:
//
//	FileStart:         ID, Filename
//	FileContent:       ID, Length (payload of Length bytes follows,
//	                   not consumed by Decode)
//	EndOfFile:         ID, Digest
//	EndOfArchiveData:  nothing
type Block struct {
	Type     Type
	ID       FileID
	Filename string
	Length   uint64
	Digest   Digest
}

// Decode reads exactly one block header from r. For FileContent
// blocks the Length-byte payload is left unread in r — the caller
// must fully consume or discard it before the next Decode.
//
// A clean EOF at a block boundary is reported as ErrTruncated: a
// well-formed stream always terminates with an EndOfArchiveData
// block, so running out of bytes is never a valid end.
func Decode(r io.Reader) (Block, error) {
	br := asByteReader(r)

	typeByte, err := br.ReadByte()
	if err != nil {
		return Block{}, fmt.Errorf("reading block type: %w", mapEOF(err))
	}

	b := Block{Type: Type(typeByte)}
	switch b.Type {
	case TypeFileStart:
		id, err := readUvarint(br, "file id")
		if err != nil {
			return Block{}, err
		}
		b.ID = FileID(id)

		nameLength, err := readUvarint(br, "filename length")
		if err != nil {
			return Block{}, err
		}
		if nameLength > MaxFilenameLength {
			return Block{}, fmt.Errorf("filename length %d exceeds maximum %d: %w",
				nameLength, MaxFilenameLength, ErrInvalidLength)
		}
		name := make([]byte, nameLength)
		if _, err := io.ReadFull(br, name); err != nil {
			return Block{}, fmt.Errorf("reading filename: %w", mapEOF(err))
		}
		b.Filename = string(name)
		return b, nil

	case TypeFileContent:
		id, err := readUvarint(br, "file id")
		if err != nil {
			return Block{}, err
		}
		b.ID = FileID(id)

		length, err := readUvarint(br, "content length")
		if err != nil {
			return Block{}, err
		}
		if length > math.MaxInt64 {
			return Block{}, fmt.Errorf("content length %d exceeds int64: %w", length, ErrInvalidLength)
		}
		b.Length = length
		return b, nil

	case TypeEndOfFile:
		id, err := readUvarint(br, "file id")
		if err != nil {
			return Block{}, err
		}
		b.ID = FileID(id)

		if _, err := io.ReadFull(br, b.Digest[:]); err != nil {
			return Block{}, fmt.Errorf("reading file digest: %w", mapEOF(err))
		}
		return b, nil

	case TypeEndOfArchiveData:
		return b, nil

	default:
		return Block{}, fmt.Errorf("block type %d: %w", typeByte, ErrUnknownBlockType)
	}
}

// Encode writes the block header to w and returns the number of bytes
// written. For FileContent blocks the caller writes the Length-byte
// payload immediately after.
func (b Block) Encode(w io.Writer) (int, error) {
	// Largest header: type byte + two maximal uvarints + the
	// filename. Assembling the header in one buffer keeps Encode a
	// single Write on the underlying stream.
	header := make([]byte, 0, 1+2*binary.MaxVarintLen64+len(b.Filename)+len(b.Digest))
	header = append(header, byte(b.Type))

	switch b.Type {
	case TypeFileStart:
		if len(b.Filename) > MaxFilenameLength {
			return 0, fmt.Errorf("filename length %d exceeds maximum %d: %w",
				len(b.Filename), MaxFilenameLength, ErrInvalidLength)
		}
		header = binary.AppendUvarint(header, uint64(b.ID))
		header = binary.AppendUvarint(header, uint64(len(b.Filename)))
		header = append(header, b.Filename...)

	case TypeFileContent:
		header = binary.AppendUvarint(header, uint64(b.ID))
		header = binary.AppendUvarint(header, b.Length)

	case TypeEndOfFile:
		header = binary.AppendUvarint(header, uint64(b.ID))
		header = append(header, b.Digest[:]...)

	case TypeEndOfArchiveData:
		// Type byte only.

	default:
		return 0, fmt.Errorf("block type %d: %w", uint8(b.Type), ErrUnknownBlockType)
	}

	written, err := w.Write(header)
	if err != nil {
		return written, fmt.Errorf("writing %s block: %w", b.Type, err)
	}
	return written, nil
}

// readUvarint reads one varint field, mapping EOF inside the field to
// ErrTruncated with the field name for context.
func readUvarint(br io.ByteReader, field string) (uint64, error) {
	value, err := binary.ReadUvarint(br)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("reading %s: %w", field, ErrTruncated)
		}
		return 0, fmt.Errorf("reading %s: %w", field, err)
	}
	return value, nil
}

// mapEOF converts the io EOF errors into ErrTruncated so callers see
// one error kind for every way the stream can end early.
func mapEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

// byteAndFullReader is the reader shape Decode needs: byte-at-a-time
// for varints and bulk reads for fixed fields. bufio.Reader satisfies
// it directly.
type byteAndFullReader interface {
	io.Reader
	io.ByteReader
}

// asByteReader returns r itself when it already supports byte reads
// (the extractor always passes a bufio.Reader), or a minimal adapter
// otherwise. The adapter issues one-byte reads, so wrap sources in
// buffering before decoding in a loop.
func asByteReader(r io.Reader) byteAndFullReader {
	if br, ok := r.(byteAndFullReader); ok {
		return br
	}
	return &byteReader{r}
}

type byteReader struct {
	io.Reader
}

func (b *byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.Reader, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	return buf[0], nil
}

// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/zeebo/blake3"

	"github.com/muxar-format/muxar/lib/block"
	"github.com/muxar-format/muxar/lib/layer"
	"github.com/muxar-format/muxar/lib/secret"
)

// Writer-side error kinds.
var (
	// ErrFinalized reports an operation on a writer after Finalize.
	ErrFinalized = errors.New("archive is finalized")

	// ErrFileNotOpen reports an append or close for a file id that
	// was never started or has already been ended.
	ErrFileNotOpen = errors.New("file id is not open")
)

// Options configures a new archive.
type Options struct {
	// Compression selects the compression transform for the block
	// stream. The zero value is CompressionNone.
	Compression layer.Compression

	// Cipher selects the encryption transform. The zero value is
	// CipherNone. Any other value requires Key.
	Cipher layer.Cipher

	// Key is the 32-byte archive key used to derive the stream
	// encryption key. Borrowed: the writer reads it during
	// construction and never closes it.
	Key *secret.Buffer
}

// Writer appends interleaved file lifecycle blocks to one physical
// stream. Several files may be open concurrently; their content
// blocks land in the order the Append calls are made.
//
// A Writer is single-owner: calls must not overlap. Callers that
// interleave content from multiple sources do so by issuing
// sequential calls against different file ids, never by sharing the
// writer across goroutines.
type Writer struct {
	// blocks is the top of the layer stack; block headers and
	// payloads are written here.
	blocks io.WriteCloser

	// cipher is the bottom transform, closed after blocks.
	cipher io.WriteCloser

	open      map[block.FileID]*openFile
	nextID    block.FileID
	finalized bool
}

// openFile tracks one started-but-not-ended file: its name (for
// error messages) and the streaming digest of everything appended.
type openFile struct {
	name   string
	hasher *blake3.Hasher
}

// NewWriter writes the archive header to dst and returns a Writer
// whose block stream passes through the configured layer transforms
// before reaching dst. The caller must call Finalize when done;
// closing or syncing dst itself stays the caller's responsibility.
func NewWriter(dst io.Writer, options Options) (*Writer, error) {
	header := archiveHeader{
		Compression: options.Compression.String(),
		Cipher:      options.Cipher.String(),
	}
	if options.Cipher != layer.CipherNone {
		salt, err := layer.NewSalt()
		if err != nil {
			return nil, err
		}
		header.Salt = salt
	}

	// Reject unknown tags before any bytes are written.
	if _, _, err := header.parseLayers(); err != nil {
		return nil, err
	}

	if _, err := writeHeader(dst, header); err != nil {
		return nil, err
	}

	cipherWriter, err := options.Cipher.NewCipherWriter(dst, options.Key, header.Salt)
	if err != nil {
		return nil, err
	}
	compressWriter, err := options.Compression.NewWriter(cipherWriter)
	if err != nil {
		return nil, err
	}

	return &Writer{
		blocks: compressWriter,
		cipher: cipherWriter,
		open:   make(map[block.FileID]*openFile),
		nextID: 1,
	}, nil
}

// StartFile opens a new logical file and returns its id. Ids are
// allocated from a monotonically increasing counter and never reused
// within the stream, even after EndFile. The same filename may be
// started more than once; the ids differ.
func (w *Writer) StartFile(name string) (block.FileID, error) {
	if w.finalized {
		return 0, fmt.Errorf("starting file %q: %w", name, ErrFinalized)
	}

	id := w.nextID
	b := block.Block{Type: block.TypeFileStart, ID: id, Filename: name}
	if _, err := b.Encode(w.blocks); err != nil {
		return 0, err
	}

	w.nextID++
	w.open[id] = &openFile{name: name, hasher: newFileHasher()}
	return id, nil
}

// AppendContent appends data as exactly one FileContent block for an
// open file id. The append is all-or-nothing from the caller's view:
// either the whole slice becomes one block or an error is returned.
// An error from the underlying layers leaves the archive unusable —
// a partially written block cannot be unwritten from a compressed,
// encrypted stream.
func (w *Writer) AppendContent(id block.FileID, data []byte) error {
	if w.finalized {
		return fmt.Errorf("appending to file %d: %w", id, ErrFinalized)
	}
	file, ok := w.open[id]
	if !ok {
		return fmt.Errorf("appending to file %d: %w", id, ErrFileNotOpen)
	}

	b := block.Block{Type: block.TypeFileContent, ID: id, Length: uint64(len(data))}
	if _, err := b.Encode(w.blocks); err != nil {
		return err
	}
	if _, err := w.blocks.Write(data); err != nil {
		return fmt.Errorf("writing content for %q: %w", file.name, err)
	}

	file.hasher.Write(data)
	return nil
}

// EndFile closes an open file id, emitting its EndOfFile block with
// the BLAKE3 digest of everything appended. No further content for
// the id is valid afterwards.
func (w *Writer) EndFile(id block.FileID) error {
	if w.finalized {
		return fmt.Errorf("ending file %d: %w", id, ErrFinalized)
	}
	file, ok := w.open[id]
	if !ok {
		return fmt.Errorf("ending file %d: %w", id, ErrFileNotOpen)
	}

	b := block.Block{Type: block.TypeEndOfFile, ID: id, Digest: sumDigest(file.hasher)}
	if _, err := b.Encode(w.blocks); err != nil {
		return err
	}

	delete(w.open, id)
	return nil
}

// flusher is implemented by layer writers that can push buffered
// bytes downstream without ending their stream.
type flusher interface {
	Flush() error
}

// Flush pushes buffered bytes through the layer transforms toward
// the physical sink. It does not end any file and does not finalize
// the archive; several flushes may happen over an archive's life.
func (w *Writer) Flush() error {
	if w.finalized {
		return ErrFinalized
	}
	if f, ok := w.blocks.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing compression layer: %w", err)
		}
	}
	if f, ok := w.cipher.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing cipher layer: %w", err)
		}
	}
	return nil
}

// Finalize ends any still-open files, writes the EndOfArchiveData
// sentinel, and closes the layer transforms so their final frames
// reach dst. The Writer is unusable afterwards. Finalize does not
// close dst.
func (w *Writer) Finalize() error {
	if w.finalized {
		return ErrFinalized
	}

	// End leftover open files in id order so the output is
	// deterministic regardless of map iteration.
	leftover := make([]block.FileID, 0, len(w.open))
	for id := range w.open {
		leftover = append(leftover, id)
	}
	slices.Sort(leftover)
	for _, id := range leftover {
		if err := w.EndFile(id); err != nil {
			return err
		}
	}

	if _, err := (block.Block{Type: block.TypeEndOfArchiveData}).Encode(w.blocks); err != nil {
		return err
	}

	w.finalized = true
	if err := w.blocks.Close(); err != nil {
		return fmt.Errorf("closing compression layer: %w", err)
	}
	if err := w.cipher.Close(); err != nil {
		return fmt.Errorf("closing cipher layer: %w", err)
	}
	return nil
}

// OpenFiles returns the number of files currently open for writing.
func (w *Writer) OpenFiles() int {
	return len(w.open)
}

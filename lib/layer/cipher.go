// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/muxar-format/muxar/lib/secret"
)

// Cipher identifies the encryption transform of an archive. The tag
// is recorded in the archive header; these values are protocol
// constants — changing them breaks format compatibility.
type Cipher uint8

const (
	// CipherNone passes the stream through unchanged.
	CipherNone Cipher = 0

	// CipherXChaCha20Poly1305 encrypts the stream as a sequence of
	// independently authenticated XChaCha20-Poly1305 chunks.
	CipherXChaCha20Poly1305 Cipher = 1
)

// Cipher stream constants. All are protocol constants.
const (
	// cipherVersion is authenticated into every chunk as AAD, so a
	// blob from a future incompatible stream version fails
	// authentication rather than misparses.
	cipherVersion byte = 0x01

	// CipherChunkSize is the plaintext size of a full cipher chunk.
	// Each chunk is sealed and authenticated independently, bounding
	// both sides' memory at one chunk regardless of archive size.
	CipherChunkSize = 64 * 1024

	// SaltSize is the size of the per-archive HKDF salt stored in
	// the archive header. A fresh salt per archive means reusing one
	// archive key never reuses a stream key.
	SaltSize = 16

	// noncePrefixSize is the size of the random per-stream nonce
	// prefix written at the start of the cipher stream. The
	// remaining 8 nonce bytes are the little-endian chunk counter.
	noncePrefixSize = chacha20poly1305.NonceSizeX - 8

	// Chunk flags. The flag byte precedes each sealed chunk and is
	// authenticated as AAD, so flipping it breaks authentication.
	chunkFlagMore  byte = 0x00
	chunkFlagFinal byte = 0x01
)

// hkdfInfoStream is the HKDF info string for deriving a stream key
// from an archive key. Changing it invalidates existing archives.
var hkdfInfoStream = []byte("muxar.cipher.stream.v1")

// ErrCipherTruncated reports that the encrypted stream ended before
// its final chunk. A well-formed stream always terminates with a
// chunk carrying the final flag, so plain EOF mid-stream means bytes
// were lost (or cut off deliberately).
var ErrCipherTruncated = errors.New("encrypted stream truncated before final chunk")

// String returns the header name of a cipher tag.
func (c Cipher) String() string {
	switch c {
	case CipherNone:
		return "none"
	case CipherXChaCha20Poly1305:
		return "xchacha20poly1305"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCipher parses a cipher tag from its header name.
func ParseCipher(name string) (Cipher, error) {
	switch name {
	case "none":
		return CipherNone, nil
	case "xchacha20poly1305":
		return CipherXChaCha20Poly1305, nil
	default:
		return 0, fmt.Errorf("unknown cipher tag: %q", name)
	}
}

// NewSalt returns a fresh random HKDF salt for a new archive.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating cipher salt: %w", err)
	}
	return salt, nil
}

// NewCipherWriter wraps w in the encrypting transform for this tag.
// For CipherNone the key and salt are ignored and writes pass
// through. The returned writer must be closed to seal the final
// chunk; closing it does not close w.
//
// The key is borrowed for the duration of the call and NOT closed;
// it must hold exactly 32 bytes.
func (c Cipher) NewCipherWriter(w io.Writer, key *secret.Buffer, salt []byte) (io.WriteCloser, error) {
	switch c {
	case CipherNone:
		return nopWriteCloser{w}, nil

	case CipherXChaCha20Poly1305:
		aead, err := newStreamAEAD(key, salt)
		if err != nil {
			return nil, err
		}

		var prefix [noncePrefixSize]byte
		if _, err := io.ReadFull(rand.Reader, prefix[:]); err != nil {
			return nil, fmt.Errorf("generating nonce prefix: %w", err)
		}
		if _, err := w.Write(prefix[:]); err != nil {
			return nil, fmt.Errorf("writing nonce prefix: %w", err)
		}

		return &cipherWriter{
			dst:       w,
			aead:      aead,
			prefix:    prefix,
			plaintext: make([]byte, 0, CipherChunkSize),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported cipher tag: %d", c)
	}
}

// NewCipherReader wraps r in the decrypting transform for this tag.
// For CipherNone the key and salt are ignored and reads pass through.
//
// The key is borrowed for the duration of the call and NOT closed.
func (c Cipher) NewCipherReader(r io.Reader, key *secret.Buffer, salt []byte) (io.ReadCloser, error) {
	switch c {
	case CipherNone:
		return io.NopCloser(r), nil

	case CipherXChaCha20Poly1305:
		aead, err := newStreamAEAD(key, salt)
		if err != nil {
			return nil, err
		}

		var prefix [noncePrefixSize]byte
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			return nil, fmt.Errorf("reading nonce prefix: %w", err)
		}

		return io.NopCloser(&cipherReader{
			src:    r,
			aead:   aead,
			prefix: prefix,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported cipher tag: %d", c)
	}
}

// newStreamAEAD derives the stream key from the archive key via
// HKDF-SHA256 and builds the AEAD. The derived key is zeroed as soon
// as the AEAD has been constructed.
func newStreamAEAD(key *secret.Buffer, salt []byte) (cipher.AEAD, error) {
	if key == nil {
		return nil, fmt.Errorf("cipher requires an archive key")
	}
	if key.Len() != secret.KeySize {
		return nil, fmt.Errorf("archive key must be %d bytes, got %d", secret.KeySize, key.Len())
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("cipher salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	reader := hkdf.New(sha256.New, key.Bytes(), salt, hkdfInfoStream)
	streamKey := make([]byte, secret.KeySize)
	if _, err := io.ReadFull(reader, streamKey); err != nil {
		secret.Zero(streamKey)
		return nil, fmt.Errorf("HKDF stream key derivation failed: %w", err)
	}

	aead, err := chacha20poly1305.NewX(streamKey)
	secret.Zero(streamKey)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	return aead, nil
}

// cipherWriter accumulates plaintext and emits one sealed chunk per
// CipherChunkSize bytes. Close seals whatever remains (possibly
// nothing) with the final flag so readers can distinguish a complete
// stream from a truncated one.
//
// Chunk wire format: [flag: 1 byte] [uvarint ciphertext length]
// [ciphertext]. The flag and stream version are AAD.
type cipherWriter struct {
	dst       io.Writer
	aead      cipher.AEAD
	prefix    [noncePrefixSize]byte
	plaintext []byte
	counter   uint64
	closed    bool
}

func (cw *cipherWriter) Write(p []byte) (int, error) {
	if cw.closed {
		return 0, fmt.Errorf("write to closed cipher stream")
	}

	total := len(p)
	for len(p) > 0 {
		space := CipherChunkSize - len(cw.plaintext)
		take := min(space, len(p))
		cw.plaintext = append(cw.plaintext, p[:take]...)
		p = p[take:]

		if len(cw.plaintext) == CipherChunkSize {
			if err := cw.emit(chunkFlagMore); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

// Flush seals and writes any buffered plaintext as a non-final
// chunk. Chunks may be shorter than CipherChunkSize, so flushing
// early costs only the per-chunk overhead.
func (cw *cipherWriter) Flush() error {
	if cw.closed {
		return fmt.Errorf("flush of closed cipher stream")
	}
	if len(cw.plaintext) == 0 {
		return nil
	}
	return cw.emit(chunkFlagMore)
}

// Close seals and writes the final chunk. It does not close the
// underlying writer. Idempotent.
func (cw *cipherWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	return cw.emit(chunkFlagFinal)
}

func (cw *cipherWriter) emit(flag byte) error {
	nonce := cw.nonce()
	aad := [2]byte{cipherVersion, flag}
	sealed := cw.aead.Seal(nil, nonce[:], cw.plaintext, aad[:])
	cw.plaintext = cw.plaintext[:0]
	cw.counter++

	frame := make([]byte, 0, 1+binary.MaxVarintLen64+len(sealed))
	frame = append(frame, flag)
	frame = binary.AppendUvarint(frame, uint64(len(sealed)))
	frame = append(frame, sealed...)

	if _, err := cw.dst.Write(frame); err != nil {
		return fmt.Errorf("writing cipher chunk: %w", err)
	}
	return nil
}

func (cw *cipherWriter) nonce() [chacha20poly1305.NonceSizeX]byte {
	var nonce [chacha20poly1305.NonceSizeX]byte
	copy(nonce[:], cw.prefix[:])
	binary.LittleEndian.PutUint64(nonce[noncePrefixSize:], cw.counter)
	return nonce
}

// cipherReader reads sealed chunks, authenticates them, and serves
// the plaintext. EOF before a final-flagged chunk is reported as
// ErrCipherTruncated.
type cipherReader struct {
	src       io.Reader
	aead      cipher.AEAD
	prefix    [noncePrefixSize]byte
	counter   uint64
	plaintext []byte
	finished  bool
}

func (cr *cipherReader) Read(p []byte) (int, error) {
	for len(cr.plaintext) == 0 {
		if cr.finished {
			return 0, io.EOF
		}
		if err := cr.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(p, cr.plaintext)
	cr.plaintext = cr.plaintext[n:]
	return n, nil
}

// fill reads and opens the next chunk.
func (cr *cipherReader) fill() error {
	var flagBuf [1]byte
	if _, err := io.ReadFull(cr.src, flagBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrCipherTruncated
		}
		return fmt.Errorf("reading cipher chunk flag: %w", err)
	}
	flag := flagBuf[0]
	if flag != chunkFlagMore && flag != chunkFlagFinal {
		return fmt.Errorf("invalid cipher chunk flag %#x", flag)
	}

	length, err := binary.ReadUvarint(&byteReader{cr.src})
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrCipherTruncated
		}
		return fmt.Errorf("reading cipher chunk length: %w", err)
	}
	// A sealed chunk is at most a full plaintext chunk plus the tag.
	if length > CipherChunkSize+uint64(cr.aead.Overhead()) {
		return fmt.Errorf("cipher chunk length %d exceeds maximum", length)
	}

	sealed := make([]byte, length)
	if _, err := io.ReadFull(cr.src, sealed); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrCipherTruncated
		}
		return fmt.Errorf("reading cipher chunk: %w", err)
	}

	nonce := cr.nonce()
	aad := [2]byte{cipherVersion, flag}
	plaintext, err := cr.aead.Open(nil, nonce[:], sealed, aad[:])
	if err != nil {
		return fmt.Errorf("cipher chunk %d authentication failed (wrong key or tampered data): %w", cr.counter, err)
	}
	cr.counter++

	cr.plaintext = plaintext
	if flag == chunkFlagFinal {
		cr.finished = true
	}
	return nil
}

func (cr *cipherReader) nonce() [chacha20poly1305.NonceSizeX]byte {
	var nonce [chacha20poly1305.NonceSizeX]byte
	copy(nonce[:], cr.prefix[:])
	binary.LittleEndian.PutUint64(nonce[noncePrefixSize:], cr.counter)
	return nonce
}

// byteReader adapts an io.Reader for binary.ReadUvarint.
type byteReader struct {
	r io.Reader
}

func (b *byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

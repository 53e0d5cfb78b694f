// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/muxar-format/muxar/lib/secret"
)

func testKey(t *testing.T) *secret.Buffer {
	t.Helper()
	key, err := secret.NewFromBytes(bytes.Repeat([]byte{0x42}, secret.KeySize))
	if err != nil {
		t.Fatalf("creating test key: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func encryptAll(t *testing.T, key *secret.Buffer, salt, plaintext []byte) []byte {
	t.Helper()
	var encrypted bytes.Buffer
	writer, err := CipherXChaCha20Poly1305.NewCipherWriter(&encrypted, key, salt)
	if err != nil {
		t.Fatalf("NewCipherWriter failed: %v", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return encrypted.Bytes()
}

func TestCipherRoundtrip(t *testing.T) {
	key := testKey(t)
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	// Spans multiple chunks to exercise the counter-based nonces.
	plaintext := bytes.Repeat([]byte("sealed chunk content "), 10000) // ~200KB
	encrypted := encryptAll(t, key, salt, plaintext)

	reader, err := CipherXChaCha20Poly1305.NewCipherReader(bytes.NewReader(encrypted), key, salt)
	if err != nil {
		t.Fatalf("NewCipherReader failed: %v", err)
	}
	defer reader.Close()

	decrypted, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("plaintext did not survive the round-trip")
	}
}

func TestCipherEmptyStream(t *testing.T) {
	// A stream with no writes still carries a final chunk, so an
	// empty encrypted archive is distinguishable from a truncated one.
	key := testKey(t)
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	encrypted := encryptAll(t, key, salt, nil)

	reader, err := CipherXChaCha20Poly1305.NewCipherReader(bytes.NewReader(encrypted), key, salt)
	if err != nil {
		t.Fatal(err)
	}
	decrypted, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(decrypted) != 0 {
		t.Errorf("decrypted %d bytes from an empty stream", len(decrypted))
	}
}

func TestCipherDetectsTruncation(t *testing.T) {
	key := testKey(t)
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	plaintext := bytes.Repeat([]byte("x"), 3*CipherChunkSize)
	encrypted := encryptAll(t, key, salt, plaintext)

	// Drop the final chunk's worth of bytes: the stream still decrypts
	// cleanly chunk by chunk, but the final flag never arrives.
	truncated := encrypted[:len(encrypted)-20]

	reader, err := CipherXChaCha20Poly1305.NewCipherReader(bytes.NewReader(truncated), key, salt)
	if err != nil {
		t.Fatal(err)
	}
	_, err = io.ReadAll(reader)
	if !errors.Is(err, ErrCipherTruncated) {
		t.Errorf("truncated stream: err = %v, want ErrCipherTruncated", err)
	}
}

func TestCipherDetectsTampering(t *testing.T) {
	key := testKey(t)
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte("authenticated content")
	encrypted := encryptAll(t, key, salt, plaintext)

	// Flip one ciphertext byte past the nonce prefix and frame header.
	tampered := append([]byte(nil), encrypted...)
	tampered[len(tampered)-1] ^= 0xFF

	reader, err := CipherXChaCha20Poly1305.NewCipherReader(bytes.NewReader(tampered), key, salt)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadAll(reader); err == nil {
		t.Error("tampered stream decrypted without error")
	}
}

func TestCipherRejectsWrongKey(t *testing.T) {
	key := testKey(t)
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	encrypted := encryptAll(t, key, salt, []byte("secret content"))

	wrongKey, err := secret.NewFromBytes(bytes.Repeat([]byte{0x43}, secret.KeySize))
	if err != nil {
		t.Fatal(err)
	}
	defer wrongKey.Close()

	reader, err := CipherXChaCha20Poly1305.NewCipherReader(bytes.NewReader(encrypted), wrongKey, salt)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadAll(reader); err == nil {
		t.Error("wrong key decrypted without error")
	}
}

func TestCipherRejectsWrongSalt(t *testing.T) {
	key := testKey(t)
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	encrypted := encryptAll(t, key, salt, []byte("secret content"))

	otherSalt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	reader, err := CipherXChaCha20Poly1305.NewCipherReader(bytes.NewReader(encrypted), key, otherSalt)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadAll(reader); err == nil {
		t.Error("wrong salt decrypted without error")
	}
}

func TestCipherRejectsBadKeySize(t *testing.T) {
	shortKey, err := secret.NewFromBytes([]byte("short"))
	if err != nil {
		t.Fatal(err)
	}
	defer shortKey.Close()

	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := CipherXChaCha20Poly1305.NewCipherWriter(io.Discard, shortKey, salt); err == nil {
		t.Error("NewCipherWriter should reject a short key")
	}
	if _, err := CipherXChaCha20Poly1305.NewCipherWriter(io.Discard, nil, salt); err == nil {
		t.Error("NewCipherWriter should reject a nil key")
	}
}

func TestCipherNonePassthrough(t *testing.T) {
	var out bytes.Buffer
	writer, err := CipherNone.NewCipherWriter(&out, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Write([]byte("plain")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "plain" {
		t.Errorf("passthrough wrote %q, want %q", out.String(), "plain")
	}

	reader, err := CipherNone.NewCipherReader(bytes.NewReader([]byte("plain")), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "plain" {
		t.Errorf("passthrough read %q, want %q", got, "plain")
	}
}

func TestParseCipher(t *testing.T) {
	for _, tag := range []Cipher{CipherNone, CipherXChaCha20Poly1305} {
		parsed, err := ParseCipher(tag.String())
		if err != nil {
			t.Errorf("ParseCipher(%q) failed: %v", tag.String(), err)
		}
		if parsed != tag {
			t.Errorf("ParseCipher(%q) = %v, want %v", tag.String(), parsed, tag)
		}
	}

	if _, err := ParseCipher("aes-gcm"); err == nil {
		t.Error("ParseCipher should reject unknown tags")
	}
}

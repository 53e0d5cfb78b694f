// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestNewFromBytesZerosSource(t *testing.T) {
	source := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	want := append([]byte(nil), source...)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if !bytes.Equal(buffer.Bytes(), want) {
		t.Error("buffer does not hold the original key material")
	}

	// The caller's slice must no longer hold the key.
	for i, b := range source {
		if b != 0 {
			t.Fatalf("source byte %d not zeroed", i)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	buffer, err := NewFromBytes([]byte("key material"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}

	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestBytesPanicsAfterClose(t *testing.T) {
	buffer, err := NewFromBytes([]byte("key material"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Error("Bytes after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) should fail")
	}
	if _, err := New(-1); err == nil {
		t.Error("New(-1) should fail")
	}
}

func TestReadKeyFile(t *testing.T) {
	key := bytes.Repeat([]byte{0xAB}, KeySize)
	path := filepath.Join(t.TempDir(), "archive.key")
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	buffer, err := ReadKeyFile(path)
	if err != nil {
		t.Fatalf("ReadKeyFile failed: %v", err)
	}
	defer buffer.Close()

	if !bytes.Equal(buffer.Bytes(), key) {
		t.Error("key did not survive the hex round-trip")
	}
}

func TestReadKeyFileRejectsWrongLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.key")
	if err := os.WriteFile(path, []byte("deadbeef"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadKeyFile(path); err == nil {
		t.Error("ReadKeyFile should reject a short key")
	}
}

func TestReadKeyFileRejectsNonHex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.key")
	bad := bytes.Repeat([]byte("zz"), KeySize)
	if err := os.WriteFile(path, bad, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadKeyFile(path); err == nil {
		t.Error("ReadKeyFile should reject non-hex input")
	}
}

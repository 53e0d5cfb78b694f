// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCreateExtractRoundtrip(t *testing.T) {
	work := t.TempDir()
	inputDir := filepath.Join(work, "input")
	writeFile(t, filepath.Join(inputDir, "a.txt"), []byte("file a"))
	writeFile(t, filepath.Join(inputDir, "sub", "b.bin"), bytes.Repeat([]byte{0x42}, 100000))

	archivePath := filepath.Join(work, "test.mux")
	if err := runCreate(createParams{
		output:      archivePath,
		compression: "zstd",
	}, []string{inputDir}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	outDir := filepath.Join(work, "out")
	if err := runExtract(extractParams{
		directory: outDir,
	}, archivePath, nil); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	// Entry names are the input paths with leading slashes stripped,
	// so the extracted tree mirrors the input tree under outDir.
	for _, name := range []string{filepath.Join(inputDir, "a.txt"), filepath.Join(inputDir, "sub", "b.bin")} {
		want, err := os.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(filepath.Join(outDir, strings.TrimPrefix(name, "/")))
		if err != nil {
			t.Fatalf("extracted file missing: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("file %s did not round-trip", name)
		}
	}
}

func TestCreateExtractEncrypted(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, "secret.txt"), []byte("confidential"))

	keyPath := filepath.Join(work, "archive.key")
	if err := runKeygen(keygenParams{output: keyPath}); err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %o, want 600", info.Mode().Perm())
	}

	archivePath := filepath.Join(work, "enc.mux")
	input := filepath.Join(work, "secret.txt")
	if err := runCreate(createParams{
		output:      archivePath,
		compression: "none",
		keyFile:     keyPath,
	}, []string{input}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Without the key, opening must fail.
	outDir := filepath.Join(work, "out")
	if err := runExtract(extractParams{directory: outDir}, archivePath, nil); err == nil {
		t.Error("extracting an encrypted archive without a key should fail")
	}

	if err := runExtract(extractParams{
		directory: outDir,
		keyFile:   keyPath,
	}, archivePath, nil); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, strings.TrimPrefix(input, "/")))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "confidential" {
		t.Error("encrypted file did not round-trip")
	}
}

func TestExtractRejectsMissingFile(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, "a.txt"), []byte("x"))

	archivePath := filepath.Join(work, "test.mux")
	if err := runCreate(createParams{
		output:      archivePath,
		compression: "none",
	}, []string{filepath.Join(work, "a.txt")}); err != nil {
		t.Fatal(err)
	}

	err := runExtract(extractParams{directory: work}, archivePath, []string{"no-such-file"})
	if err == nil {
		t.Error("requesting an absent file should fail")
	}
}

func TestCreateRejectsBadCompression(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, "a.txt"), []byte("x"))

	err := runCreate(createParams{
		output:      filepath.Join(work, "test.mux"),
		compression: "brotli",
	}, []string{filepath.Join(work, "a.txt")})
	if err == nil {
		t.Error("unsupported compression should fail")
	}
}

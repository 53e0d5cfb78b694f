// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
)

// KeySize is the size in bytes of a muxar archive key.
const KeySize = 32

// ReadKeyFile reads a hex-encoded 32-byte archive key from a file
// path, or from stdin if path is "-". The returned buffer is
// mmap-backed (locked into RAM, excluded from core dumps) and must be
// closed by the caller. Leading and trailing whitespace is trimmed
// before decoding.
func ReadKeyFile(path string) (*Buffer, error) {
	var data []byte

	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			return nil, fmt.Errorf("stdin is empty")
		}
		data = scanner.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) != hex.EncodedLen(KeySize) {
		Zero(data)
		return nil, fmt.Errorf("archive key must be %d hex characters, got %d", hex.EncodedLen(KeySize), len(trimmed))
	}

	decoded := make([]byte, KeySize)
	if _, err := hex.Decode(decoded, trimmed); err != nil {
		Zero(data)
		Zero(decoded)
		return nil, fmt.Errorf("decoding archive key: %w", err)
	}

	// NewFromBytes copies into mmap-backed memory and zeros decoded.
	buffer, err := NewFromBytes(decoded)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

// The muxar command creates, lists, and extracts muxar archives: a
// multiplexed append-only container for streaming many files through
// one seekable stream, with optional zstd/lz4 compression and
// XChaCha20-Poly1305 encryption.
package main

import (
	"fmt"
	"os"

	"github.com/muxar-format/muxar/cmd/muxar/cli"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return an ExitError
		// with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}

func root() *cli.Command {
	return &cli.Command{
		Name: "muxar",
		Description: `muxar: multiplexed streaming archives.

Create, list, and extract append-only archives that interleave many
files into one stream. Extraction reads the archive in a single
forward pass with one seek, so it works efficiently from slow and
remote media.`,
		Subcommands: []*cli.Command{
			createCommand(),
			listCommand(),
			extractCommand(),
			keygenCommand(),
		},
	}
}

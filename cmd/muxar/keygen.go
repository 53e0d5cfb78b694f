// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/muxar-format/muxar/cmd/muxar/cli"
	"github.com/muxar-format/muxar/lib/secret"
)

type keygenParams struct {
	output string
}

func keygenCommand() *cli.Command {
	var params keygenParams

	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate a new archive encryption key",
		Usage:   "muxar keygen [flags]",
		Description: `Generate a random 32-byte archive key and print it as hex. With
-o, the key is written to the named file with mode 0600 instead of
stdout.`,
		Examples: []cli.Example{
			{
				Description: "Generate a key file",
				Command:     "muxar keygen -o archive.key",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVarP(&params.output, "output", "o", "", "key file to write (default: stdout)")
			return flagSet
		},
		Run: func(args []string) error {
			return runKeygen(params)
		},
	}
}

func runKeygen(params keygenParams) error {
	key := make([]byte, secret.KeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	encoded := hex.EncodeToString(key) + "\n"
	secret.Zero(key)

	if params.output == "" {
		fmt.Print(encoded)
		return nil
	}
	if err := os.WriteFile(params.output, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

// secretKey loads and decodes a key file into guarded memory.
func secretKey(path string) (*secret.Buffer, error) {
	key, err := secret.ReadKeyFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return key, nil
}

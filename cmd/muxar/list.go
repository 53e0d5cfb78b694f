// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/muxar-format/muxar/cmd/muxar/cli"
	"github.com/muxar-format/muxar/lib/archive"
)

type listParams struct {
	keyFile string
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List the files in an archive",
		Usage:   "muxar list <archive> [flags]",
		Description: `Print the filenames stored in an archive, one per line, in the
order they were started. Listing reads the whole archive once; for
encrypted archives the key is required even to list names.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&params.keyFile, "key-file", "", "hex-encoded 32-byte key file for encrypted archives")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one archive argument required\n\nUsage: muxar list <archive> [flags]")
			}
			return runList(params, args[0])
		},
	}
}

func runList(params listParams, archivePath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, err := openReader(file, params.keyFile)
	if err != nil {
		return err
	}

	names, err := reader.ListFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// openReader opens an archive reader, loading the key file when one
// is given. The key buffer, if any, lives until process exit; these
// commands do one pass and terminate.
func openReader(file *os.File, keyFile string) (*archive.Reader, error) {
	var options archive.ReaderOptions
	if keyFile != "" {
		key, err := secretKey(keyFile)
		if err != nil {
			return nil, err
		}
		options.Key = key
	}
	return archive.NewReader(file, options)
}

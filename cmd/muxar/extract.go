// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/muxar-format/muxar/cmd/muxar/cli"
)

type extractParams struct {
	directory string
	keyFile   string
	verbose   bool
}

func extractCommand() *cli.Command {
	var params extractParams

	return &cli.Command{
		Name:    "extract",
		Summary: "Extract files from an archive",
		Usage:   "muxar extract <archive> [file...] [flags]",
		Description: `Extract files into the output directory. With no file arguments,
every file in the archive is extracted; otherwise only the named
files. Extraction streams the archive in one forward pass, so
unrequested files cost read bandwidth but no memory or disk.`,
		Examples: []cli.Example{
			{
				Description: "Extract everything into ./out",
				Command:     "muxar extract logs.mux -C out",
			},
			{
				Description: "Extract two specific files from an encrypted archive",
				Command:     "muxar extract secrets.mux config/app.yaml config/db.yaml --key-file archive.key",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("extract", pflag.ContinueOnError)
			flagSet.StringVarP(&params.directory, "directory", "C", ".", "directory to extract into")
			flagSet.StringVar(&params.keyFile, "key-file", "", "hex-encoded 32-byte key file for encrypted archives")
			flagSet.BoolVarP(&params.verbose, "verbose", "v", false, "log each file as it is extracted")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("archive argument required\n\nUsage: muxar extract <archive> [file...] [flags]")
			}
			return runExtract(params, args[0], args[1:])
		},
	}
}

func runExtract(params extractParams, archivePath string, requested []string) error {
	logger := cli.NewCommandLogger(params.verbose).With("command", "extract", "archive", archivePath)

	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, err := openReader(file, params.keyFile)
	if err != nil {
		return err
	}

	// First pass: the archive's own listing decides what exists.
	// Requested names that are not in the archive are an error up
	// front, before anything touches the output directory.
	names, err := reader.ListFiles()
	if err != nil {
		return err
	}

	wanted := names
	if len(requested) > 0 {
		present := make(map[string]bool, len(names))
		for _, name := range names {
			present[name] = true
		}
		for _, name := range requested {
			if !present[name] {
				return fmt.Errorf("file %q is not in the archive", name)
			}
		}
		wanted = requested
	}

	export := make(map[string]io.Writer, len(wanted))
	outputs := make([]*os.File, 0, len(wanted))
	defer func() {
		for _, output := range outputs {
			output.Close()
		}
	}()

	for _, name := range wanted {
		output, err := createOutput(params.directory, name)
		if err != nil {
			return err
		}
		outputs = append(outputs, output)
		export[name] = output
	}

	// Second pass: one seek, then stream everything to the sinks.
	if err := reader.LinearExtract(export); err != nil {
		return err
	}

	for _, output := range outputs {
		if err := output.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", output.Name(), err)
		}
		logger.Debug("extracted file", "path", output.Name())
	}
	outputs = nil

	logger.Info("extraction complete", "files", len(wanted))
	return nil
}

// createOutput creates the destination file for one archive entry,
// making parent directories as needed. Entry names that escape the
// output directory (absolute, or containing "..") are rejected.
func createOutput(directory, name string) (*os.File, error) {
	relative := filepath.FromSlash(name)
	if !filepath.IsLocal(relative) {
		return nil, fmt.Errorf("refusing to extract %q: path escapes the output directory", name)
	}

	path := filepath.Join(directory, relative)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

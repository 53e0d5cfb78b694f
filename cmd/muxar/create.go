// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/muxar-format/muxar/cmd/muxar/cli"
	"github.com/muxar-format/muxar/lib/archive"
	"github.com/muxar-format/muxar/lib/layer"
	"github.com/muxar-format/muxar/lib/secret"
)

type createParams struct {
	output      string
	compression string
	keyFile     string
	verbose     bool
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create an archive from files and directories",
		Usage:   "muxar create -o <archive> [flags] <path>...",
		Description: `Create a new archive containing the named files. Directory
arguments are walked recursively; each regular file becomes one
archive entry under its path as given on the command line.

With --key-file, the archive is encrypted with XChaCha20-Poly1305
using the 32-byte hex key in the file ("-" reads the key from stdin).
Generate a key with "muxar keygen".`,
		Examples: []cli.Example{
			{
				Description: "Archive a directory with zstd compression",
				Command:     "muxar create -o logs.mux --compression zstd ./logs",
			},
			{
				Description: "Create an encrypted archive",
				Command:     "muxar create -o secrets.mux --key-file archive.key ./config",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			flagSet.StringVarP(&params.output, "output", "o", "", "archive file to write (required)")
			flagSet.StringVar(&params.compression, "compression", "zstd", "compression: none, zstd, or lz4")
			flagSet.StringVar(&params.keyFile, "key-file", "", "hex-encoded 32-byte key file; enables encryption")
			flagSet.BoolVarP(&params.verbose, "verbose", "v", false, "log each file as it is archived")
			return flagSet
		},
		Run: func(args []string) error {
			return runCreate(params, args)
		},
	}
}

func runCreate(params createParams, args []string) error {
	if params.output == "" {
		return fmt.Errorf("-o/--output is required\n\nUsage: muxar create -o <archive> [flags] <path>...")
	}
	if len(args) == 0 {
		return fmt.Errorf("at least one input path is required\n\nUsage: muxar create -o <archive> [flags] <path>...")
	}

	logger := cli.NewCommandLogger(params.verbose).With("command", "create", "archive", params.output)

	compression, err := layer.ParseCompression(params.compression)
	if err != nil {
		return err
	}

	options := archive.Options{Compression: compression}
	if params.keyFile != "" {
		key, err := secret.ReadKeyFile(params.keyFile)
		if err != nil {
			return fmt.Errorf("reading key file: %w", err)
		}
		defer key.Close()
		options.Cipher = layer.CipherXChaCha20Poly1305
		options.Key = key
	}

	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}

	output, err := os.Create(params.output)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer output.Close()

	writer, err := archive.NewWriter(output, options)
	if err != nil {
		return err
	}

	var total int64
	for _, input := range inputs {
		size, err := archiveFile(writer, input)
		if err != nil {
			return err
		}
		total += size
		logger.Debug("archived file", "name", input, "bytes", size)
	}

	if err := writer.Finalize(); err != nil {
		return err
	}
	if err := output.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	logger.Info("archive created", "files", len(inputs), "bytes", total)
	return nil
}

// entryName converts an on-disk path to its archive entry name:
// slash-separated, cleaned, with any leading slashes stripped so
// extraction can never write outside its output directory.
func entryName(path string) string {
	return strings.TrimLeft(filepath.ToSlash(filepath.Clean(path)), "/")
}

// collectInputs expands the command-line paths into the list of
// regular files to archive, walking directories recursively.
func collectInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			inputs = append(inputs, filepath.ToSlash(filepath.Clean(arg)))
			continue
		}
		err = filepath.WalkDir(arg, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.Type().IsRegular() {
				inputs = append(inputs, filepath.ToSlash(filepath.Clean(path)))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no regular files found in the given paths")
	}
	return inputs, nil
}

// archiveFile streams one file into the archive as a single entry and
// returns the number of content bytes written.
func archiveFile(writer *archive.Writer, path string) (int64, error) {
	file, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		return 0, err
	}
	defer file.Close()

	id, err := writer.StartFile(entryName(path))
	if err != nil {
		return 0, err
	}
	copied, err := io.Copy(archive.NewStreamWriter(writer, id), file)
	if err != nil {
		return 0, fmt.Errorf("archiving %s: %w", path, err)
	}
	if err := writer.EndFile(id); err != nil {
		return 0, err
	}
	return copied, nil
}

// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesSubcommand(t *testing.T) {
	ran := false
	root := &Command{
		Name: "muxar",
		Subcommands: []*Command{
			{
				Name: "list",
				Run: func(args []string) error {
					ran = true
					if len(args) != 1 || args[0] != "a.mux" {
						t.Errorf("args = %v, want [a.mux]", args)
					}
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"list", "a.mux"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !ran {
		t.Error("subcommand did not run")
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "muxar",
		Subcommands: []*Command{
			{Name: "extract", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"extrct"})
	if err == nil {
		t.Fatal("unknown command should fail")
	}
	if !strings.Contains(err.Error(), `did you mean "extract"`) {
		t.Errorf("error lacks suggestion: %v", err)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var verbose bool
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.BoolVarP(&verbose, "verbose", "v", false, "")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 || args[0] != "a.mux" {
				t.Errorf("args = %v, want [a.mux]", args)
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--verbose", "a.mux"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !verbose {
		t.Error("flag was not parsed")
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "create",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			flagSet.String("compression", "zstd", "")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}

	err := command.Execute([]string{"--compresion", "lz4"})
	if err == nil {
		t.Fatal("unknown flag should fail")
	}
	if !strings.Contains(err.Error(), "--compression") {
		t.Errorf("error lacks flag suggestion: %v", err)
	}
}

func TestExecuteSubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "muxar",
		Subcommands: []*Command{{Name: "list", Run: func([]string) error { return nil }}},
	}
	if err := root.Execute(nil); err == nil {
		t.Error("no args with subcommands should fail")
	}
}

func TestPrintHelpListsSubcommands(t *testing.T) {
	root := &Command{
		Name: "muxar",
		Subcommands: []*Command{
			{Name: "create", Summary: "Create an archive"},
			{Name: "extract", Summary: "Extract files"},
		},
	}

	var out strings.Builder
	root.PrintHelp(&out)
	help := out.String()
	for _, want := range []string{"create", "Create an archive", "extract", "Extract files"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

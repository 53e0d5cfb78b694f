// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "testing"

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"extract", "extract", 0},
		{"extrct", "extract", 1},
		{"lsit", "list", 2},
		{"create", "extract", 5},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "create"},
		{Name: "list"},
		{Name: "extract"},
	}

	if got := suggestCommand("extrat", commands); got != "extract" {
		t.Errorf("suggestCommand(extrat) = %q, want extract", got)
	}
	if got := suggestCommand("completely-different", commands); got != "" {
		t.Errorf("suggestCommand far input = %q, want empty", got)
	}
}

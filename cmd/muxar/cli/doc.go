// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree, help rendering, and logging
// shared by the muxar CLI subcommands.
package cli

// Copyright 2026 The Muxar Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError carries a specific process exit code for commands that
// have already printed their own output. main checks for it and exits
// with the code instead of printing a redundant "error:" line.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the process exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

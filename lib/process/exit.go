// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. This is
// the standard GameManager binary entrypoint error handler. Use it in main()
// for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	FatalCode(err, 1)
}

// FatalCode writes "error: err" to stderr and exits with code. Use
// this instead of Fatal when run()'s error distinguishes more than one
// failure class at the process boundary (e.g. configuration error vs.
// transport lost).
func FatalCode(err error, code int) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}

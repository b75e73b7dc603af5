// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog provides atomic state file operations for tracking
// risky engine process transitions. The Supervisor writes a watchdog
// [State] into a write-dir before a rollback restarts an engine
// instance in place, and clears it when the new instance's Bridge
// handshakes. The Supervisor does not call [Check], so a watchdog left
// behind by an interrupted transition is not reported by it.
//
// The workflow the package supports, for a write-dir reused across
// restarts (steps 1 to 3 are what the Supervisor does on rollback):
//
//  1. Before spawning the replacement process: call [Write] with the
//     previous and new engine binary paths.
//  2. Spawn the new engine process.
//  3. Once the new instance reaches "running", call [Clear] to remove
//     the watchdog file.
//  4. A caller that finds a watchdog left behind with [Check] knows
//     the prior instance never reached "running" -- the transition
//     failed. It reports that and calls [Clear] before trying again.
//
// The watchdog file is written atomically (write to temporary file,
// fsync, rename into place, fsync parent directory) so readers never
// see a partial or corrupt state. [Check] includes staleness detection:
// it ignores watchdog files older than a configurable maximum age to
// prevent acting on ancient files left behind by an unrelated instance
// that previously used the same write-dir.
//
// The [State] struct records the component name, previous and new
// engine binary paths, and a timestamp. It is serialized as JSON.
//
// This package has no dependencies on other internal packages.
package watchdog

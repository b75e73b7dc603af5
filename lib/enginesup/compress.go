// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

// compressLogFile gzip-compresses the engine's captured stdout/stderr
// file in place, writing path+".gz" and removing the original. Logs
// are text, so gzip's ratio on them is worth the CPU; this runs once,
// after the engine process has exited and the file is no longer being
// written.
func compressLogFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading log file %s: %w", path, err)
	}

	gzPath := path + ".gz"
	file, err := os.OpenFile(gzPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", gzPath, err)
	}
	writer := gzip.NewWriter(file)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		file.Close()
		os.Remove(gzPath)
		return fmt.Errorf("gzip-compressing %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		os.Remove(gzPath)
		return fmt.Errorf("closing gzip writer for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(gzPath)
		return fmt.Errorf("closing %s: %w", gzPath, err)
	}

	return os.Remove(path)
}

// compressDemo LZ4-block-compresses a finalized demo file, writing
// path+".lz4" and removing the original. LZ4 trades some ratio for
// fast decode. The Supervisor does not call it: demos are left as the
// engine wrote them, and no channel serves them to agent hosts.
func compressDemo(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading demo file %s: %w", path, err)
	}

	bound := lz4.CompressBlockBound(len(data))
	dest := make([]byte, bound)
	written, err := lz4.CompressBlock(data, dest, nil)
	if err != nil {
		return fmt.Errorf("lz4-compressing demo %s: %w", path, err)
	}
	if written == 0 {
		// lz4 reports 0 when it determines the input is
		// incompressible; keep the original rather than writing a
		// useless wrapper file.
		return nil
	}

	lz4Path := path + ".lz4"
	if err := os.WriteFile(lz4Path, dest[:written], 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lz4Path, err)
	}
	return os.Remove(path)
}

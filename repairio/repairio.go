// Package repairio provides the crash-safe write discipline shared by the
// per-format repairers.
//
// In-place repair never truncates the original before the replacement is
// complete: the full repaired image is written to a temporary file in the
// destination directory and renamed over the target, so a crash mid-repair
// leaves either the original or the finished replacement, never a torn file.
package repairio

import (
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic writes data to path via a temp file + rename in the same
// directory.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".repair-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// CopyIfDistinct copies src to dst when the two paths differ; repairing an
// already-valid file to its own path is a no-op, preserving bytes exactly.
func CopyIfDistinct(src, dst string) error {
	if src == dst {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return WriteAtomic(dst, data)
}

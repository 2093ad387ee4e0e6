// Package safefile writes report artifacts atomically and opens snapshot files
// without following a symlink at the final path component.
package safefile

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/oklog/ulid/v2"
)

// WriteAtomic writes path by streaming into a sibling temp file and renaming it
// into place. On any failure the temp file is removed and an existing file at
// path is left untouched.
func WriteAtomic(path string, perm os.FileMode, write func(w io.Writer) error) error {
	tempPath := TempPath(path)
	file, err := OpenNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := write(file); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("destination %s is a symlink", path)
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				// Windows refuses to rename over an existing file.
				if rmErr := os.Remove(path); rmErr == nil {
					err = os.Rename(tempPath, path)
				}
			}
		}
		if err != nil {
			return fmt.Errorf("rename into place: %w", err)
		}
	}

	success = true
	return nil
}

// TempPath returns a unique sibling path for staging writes to path.
func TempPath(path string) string {
	return path + "." + ulid.Make().String() + ".tmp"
}

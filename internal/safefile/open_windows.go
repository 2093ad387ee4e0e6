//go:build windows

package safefile

import (
	"os"

	"github.com/hpungsan/snapdiff/internal/errors"
)

// OpenNoFollow opens a file for writing.
// O_NOFOLLOW is not available on Windows; WriteAtomic still refuses a symlinked
// destination before renaming.
func OpenNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// OpenReadNoFollow opens a snapshot for reading.
func OpenReadNoFollow(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputNotFound(path)
		}
		return nil, err
	}
	return f, nil
}

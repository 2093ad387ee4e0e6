//go:build !windows

package safefile

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/snapdiff/internal/errors"
)

func TestOpenReadNoFollow_RejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.csv")
	if err := os.WriteFile(target, []byte("id\n1\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	link := filepath.Join(dir, "link.csv")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	_, err := OpenReadNoFollow(link)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestWriteAtomic_RejectsSymlinkDestination(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "victim.txt")
	if err := os.WriteFile(target, []byte("keep"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	link := filepath.Join(dir, "summary.json")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	err := WriteAtomic(link, 0644, func(w io.Writer) error {
		_, err := io.WriteString(w, "clobber")
		return err
	})
	if err == nil {
		t.Fatal("WriteAtomic() expected error for symlink destination")
	}

	data, _ := os.ReadFile(target)
	if string(data) != "keep" {
		t.Errorf("symlink target modified: %q", data)
	}
}

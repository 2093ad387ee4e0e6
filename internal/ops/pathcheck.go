package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/errors"
)

// PathCheckMode indicates what a caller-supplied path is used for.
type PathCheckMode int

const (
	PathCheckSnapshot  PathCheckMode = iota // snapshot file to read
	PathCheckReportDir                      // directory reports are written into
)

// snapshotExts are the file extensions the snapshot loader accepts.
var snapshotExts = map[string]bool{
	".csv":    true,
	".tsv":    true,
	".tab":    true,
	".jsonl":  true,
	".ndjson": true,
}

// ValidatePath checks a path supplied by an untrusted caller (MCP tools).
// It checks:
// 1. Path traversal (.. sequences)
// 2. Extension (snapshot files only)
// 3. Directory restrictions (a snapshot must be DIRECTLY in ~/.snapdiff/snapshots or
// an allowed_paths entry; a report directory must BE one of those directories)
// 4. Symlink safety (neither the path nor its parent may be a symlink)
//
// A snapshot that does not exist is INPUT_NOT_FOUND so callers can skip it
// the same way the loader would.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}

	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if mode == PathCheckSnapshot && !snapshotExts[strings.ToLower(filepath.Ext(cleaned))] {
		return errors.NewInvalidRequest("path must have a .csv, .tsv or .jsonl extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	// Symlink restrictions apply even with allow_unsafe_paths.
	if cfg == nil || !cfg.AllowUnsafePaths {
		allowedDirs, err := getAllowedDirs(cfg)
		if err != nil {
			return err
		}

		dir := absPath
		if mode == PathCheckSnapshot {
			dir = filepath.Dir(absPath)
		}
		if !isAllowedDir(dir, allowedDirs) {
			return errors.NewInvalidRequest(
				fmt.Sprintf("path must be directly in an allowed directory (no subdirectories); allowed: %v",
					allowedDirs))
		}

		if mode == PathCheckSnapshot {
			if info, err := os.Lstat(dir); err == nil && info.Mode()&os.ModeSymlink != 0 {
				return errors.NewInvalidRequest("parent directory must not be a symlink")
			}
		}
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if mode == PathCheckSnapshot && os.IsNotExist(err) {
			return errors.NewInputNotFound(path)
		}
		return nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	if mode == PathCheckReportDir && !info.IsDir() {
		return errors.NewInvalidRequest("report path must be a directory")
	}
	return nil
}

// getAllowedDirs returns the list of allowed directories (absolute, cleaned).
// Existing symlinked entries are resolved to their targets.
func getAllowedDirs(cfg *config.Config) ([]string, error) {
	defaultDir, err := DefaultSnapshotsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{defaultDir}

	// Only absolute allowed_paths entries count.
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}

		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}

	return result, nil
}

// isAllowedDir checks if dir exactly matches one of the allowed directories.
// Subdirectories do not match.
func isAllowedDir(dir string, allowedDirs []string) bool {
	dir = filepath.Clean(dir)
	for _, allowed := range allowedDirs {
		if dir == filepath.Clean(allowed) {
			return true
		}
	}
	return false
}

// DefaultSnapshotsDir returns the default snapshot drop directory (~/.snapdiff/snapshots).
func DefaultSnapshotsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, ".snapdiff", "snapshots"), nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Forward slashes count on every platform.
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

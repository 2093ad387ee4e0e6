package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SanitizeForFilename sanitizes a source name for safe use in a filename.
// Path separators and ".." become dashes and control characters are removed.
func SanitizeForFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	s = strings.TrimSpace(b.String())

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if s == "" {
		s = "unnamed"
	}
	return s
}

// SummaryFileName returns summary_<source>.json.
func SummaryFileName(source string) string {
	return fmt.Sprintf("summary_%s.json", SanitizeForFilename(source))
}

// DiffFileName returns diff_<source>_<YYYYMMDD>.<ext> for the run date.
func DiffFileName(source string, runAt time.Time, format Format) string {
	return fmt.Sprintf("diff_%s_%s.%s", SanitizeForFilename(source), runAt.Format("20060102"), format.Ext())
}

// SummaryPath returns the summary location for source under dir.
func SummaryPath(dir, source string) string {
	return filepath.Join(dir, SummaryFileName(source))
}

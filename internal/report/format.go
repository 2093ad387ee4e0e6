package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hpungsan/snapdiff/internal/errors"
)

// Format is a diff table encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name. Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatTSV, FormatXLSX:
		return f, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("format must be one of: csv, tsv, xlsx (got %q)", s))
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	if f == "" {
		return string(FormatCSV)
	}
	return string(f)
}

// formatFromPath infers the format from a file extension.
func formatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

func (f Format) comma() rune {
	if f == FormatTSV {
		return '\t'
	}
	return ','
}

package ops

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/record"
)

// Per-source outcomes reported by Diff and Batch.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// lookupSource returns the configuration for a named source.
// Returns UNKNOWN_SOURCE if cfg has no such source.
func lookupSource(cfg *config.Config, source string) (string, config.SourceConfig, error) {
	name := strings.TrimSpace(source)
	if name == "" {
		return "", config.SourceConfig{}, errors.NewInvalidRequest("source is required")
	}
	sc, ok := cfg.Source(name)
	if !ok {
		return "", config.SourceConfig{}, errors.NewUnknownSource(name)
	}
	return name, sc, nil
}

// loadOptions builds the snapshot loader options for a source.
func loadOptions(name string, sc config.SourceConfig) record.LoadOptions {
	return record.LoadOptions{
		Source:    name,
		Aliases:   sc.ColumnAliases,
		Encoding:  sc.Encoding,
		Delimiter: sc.Delimiter,
	}
}

// rulesFor converts a source's normalize block into comparison rules.
func rulesFor(sc config.SourceConfig) record.Rules {
	return record.Rules{
		TextFields:     sc.Normalize.TextFields,
		CategoryFields: sc.Normalize.CategoryFields,
		NumericFields:  sc.Normalize.NumericFields,
	}
}

// generateULID generates a new ULID string.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id.String(), nil
}

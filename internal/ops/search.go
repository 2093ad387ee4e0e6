package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/snapdiff/internal/db"
	"github.com/hpungsan/snapdiff/internal/errors"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxQueryLength     = 200
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Source string // required
	Query  string // optional, empty matches every record
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Source     string             `json:"source"`
	Query      string             `json:"query"`
	Items      []db.IndexedRecord `json:"items"`
	Pagination Pagination         `json:"pagination"`
}

// Search finds indexed records of a source whose title contains the query,
// ignoring case. Results keep snapshot order.
func Search(ctx context.Context, database *sql.DB, input SearchInput) (*SearchOutput, error) {
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, errors.NewInvalidRequest("source is required")
	}

	query := strings.TrimSpace(input.Query)
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	items, total, err := db.SearchRecords(ctx, database, source, query, limit, offset)
	if err != nil {
		return nil, err
	}

	return &SearchOutput{
		Source: source,
		Query:  query,
		Items:  items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}

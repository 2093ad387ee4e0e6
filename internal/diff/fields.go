package diff

import (
	"github.com/hpungsan/snapdiff/internal/record"
)

// Where a dropped comparison field was missing.
const (
	MissingInOld  = "old"
	MissingInNew  = "new"
	MissingInBoth = "both"
)

// DroppedField is a configured comparison field excluded from a run.
type DroppedField struct {
	Field     string `json:"field"`
	MissingIn string `json:"missing_in"`
}

// EffectiveFields returns the configured fields present in both column sets,
// in configured order, plus the fields it had to drop.
func EffectiveFields(configured, oldColumns, newColumns []string) ([]string, []DroppedField) {
	inOld := columnSet(oldColumns)
	inNew := columnSet(newColumns)

	seen := make(map[string]bool, len(configured))
	effective := make([]string, 0, len(configured))
	var dropped []DroppedField

	for _, f := range configured {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true

		switch {
		case f == record.ColID:
			// The key never takes part in comparison.
		case inOld[f] && inNew[f]:
			effective = append(effective, f)
		case !inOld[f] && !inNew[f]:
			dropped = append(dropped, DroppedField{Field: f, MissingIn: MissingInBoth})
		case !inOld[f]:
			dropped = append(dropped, DroppedField{Field: f, MissingIn: MissingInOld})
		default:
			dropped = append(dropped, DroppedField{Field: f, MissingIn: MissingInNew})
		}
	}
	return effective, dropped
}

func columnSet(columns []string) map[string]bool {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return set
}

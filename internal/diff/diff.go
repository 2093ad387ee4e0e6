// Package diff classifies the records of two snapshots of one source into
// added, deleted, modified and unchanged, and lays the deltas out as a table.
package diff

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/record"
)

// Options configures one comparison.
type Options struct {
	// Source names the run; defaults to the new snapshot's source.
	Source string

	// ComparisonFields decide "modified". Other columns never do.
	ComparisonFields []string

	// Rules normalize comparison values before equality checks.
	Rules record.Rules

	// Logger receives dropped-field warnings. Nil discards them.
	Logger logrus.FieldLogger
}

// Change is a record present in both snapshots whose comparison values differ.
type Change struct {
	ID            string
	Old           record.Record
	New           record.Record
	ChangedFields []string
}

// Result is the outcome of diffing two snapshots.
type Result struct {
	Source  string
	OldFile string
	NewFile string

	Added     []record.Record
	Deleted   []record.Record
	Modified  []Change
	Unchanged int

	EffectiveFields []string
	DroppedFields   []DroppedField

	Table *Table
}

// Counts returns the classification cardinalities.
func (r *Result) Counts() Counts {
	return Counts{
		Added:    len(r.Added),
		Deleted:  len(r.Deleted),
		Modified: len(r.Modified),
	}
}

// Distinct returns |old ids ∪ new ids|.
func (r *Result) Distinct() int {
	return len(r.Added) + len(r.Deleted) + len(r.Modified) + r.Unchanged
}

// Diff compares oldSnap against newSnap.
//
// Both snapshots are deduplicated by id (last occurrence wins) first. An id
// present in both is modified when any effective comparison field differs after
// normalization; an empty cell is a missing value, equal only to another
// missing value. The inputs are not modified.
func Diff(oldSnap, newSnap *record.Snapshot, opts Options) (*Result, error) {
	if oldSnap == nil || newSnap == nil {
		return nil, errors.NewInvalidRequest("both old and new snapshots are required")
	}
	if !oldSnap.HasColumn(record.ColID) {
		return nil, errors.NewSchemaIncompatible(oldSnap.Path, record.ColID)
	}
	if !newSnap.HasColumn(record.ColID) {
		return nil, errors.NewSchemaIncompatible(newSnap.Path, record.ColID)
	}

	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	source := opts.Source
	if source == "" {
		source = newSnap.Source
	}
	if source == "" {
		source = oldSnap.Source
	}

	oldRecs, _ := record.Dedupe(oldSnap.Records)
	newRecs, _ := record.Dedupe(newSnap.Records)

	oldByID := make(map[string]record.Record, len(oldRecs))
	for _, r := range oldRecs {
		oldByID[r.ID] = r
	}
	newByID := make(map[string]record.Record, len(newRecs))
	for _, r := range newRecs {
		newByID[r.ID] = r
	}

	effective, dropped := EffectiveFields(opts.ComparisonFields, oldSnap.Columns, newSnap.Columns)
	for _, d := range dropped {
		log.WithFields(logrus.Fields{
			"source":     source,
			"field":      d.Field,
			"missing_in": d.MissingIn,
		}).Warn("comparison field missing from snapshot; excluded from comparison")
	}

	res := &Result{
		Source:          source,
		OldFile:         oldSnap.Name(),
		NewFile:         newSnap.Name(),
		EffectiveFields: effective,
		DroppedFields:   dropped,
	}

	for _, r := range newRecs {
		if _, ok := oldByID[r.ID]; !ok {
			res.Added = append(res.Added, r)
		}
	}

	for _, o := range oldRecs {
		n, ok := newByID[o.ID]
		if !ok {
			res.Deleted = append(res.Deleted, o)
			continue
		}
		if changed := changedFields(o, n, effective, opts.Rules); len(changed) > 0 {
			res.Modified = append(res.Modified, Change{
				ID:            o.ID,
				Old:           o,
				New:           n,
				ChangedFields: changed,
			})
		} else {
			res.Unchanged++
		}
	}

	res.Table = buildTable(oldSnap.Columns, newSnap.Columns, res.Added, res.Deleted, res.Modified)

	log.WithFields(logrus.Fields{
		"source":    source,
		"added":     len(res.Added),
		"deleted":   len(res.Deleted),
		"modified":  len(res.Modified),
		"unchanged": res.Unchanged,
		"distinct":  res.Distinct(),
	}).Debug("diff computed")

	return res, nil
}

// changedFields lists the effective fields whose normalized values differ.
func changedFields(o, n record.Record, fields []string, rules record.Rules) []string {
	var changed []string
	for _, f := range fields {
		if rules.Apply(f, o.Get(f)) != rules.Apply(f, n.Get(f)) {
			changed = append(changed, f)
		}
	}
	return changed
}

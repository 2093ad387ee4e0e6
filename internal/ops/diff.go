package ops

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/diff"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/record"
	"github.com/hpungsan/snapdiff/internal/report"
)

// DiffInput contains parameters for the Diff operation.
type DiffInput struct {
	Source string    // required, must be configured
	Old    string    // optional, default: sources[source].old
	New    string    // optional, default: sources[source].new
	Fields []string  // optional, overrides comparison_fields
	OutDir string    // optional, default: cfg.ReportDir
	Format string    // optional, default: cfg.DiffFormat
	DryRun bool      // compare only, write nothing
	RunAt  time.Time // optional, default: now
}

// DiffOutput contains the result of the Diff operation.
type DiffOutput struct {
	Source string `json:"source"`
	Status string `json:"status"`           // "ok" or "skipped"
	Reason string `json:"reason,omitempty"` // why a run was skipped

	Summary         *diff.Summary       `json:"summary,omitempty"`
	EffectiveFields []string            `json:"effective_fields,omitempty"`
	DroppedFields   []diff.DroppedField `json:"dropped_fields,omitempty"`
	Duplicates      int                 `json:"duplicates,omitempty"` // rows dropped by dedup, both snapshots
	Paths           *report.Paths       `json:"paths,omitempty"`      // nil on dry run

	Table *diff.Table `json:"-"`
}

// Diff loads the old and new snapshots of one source, compares them and
// writes the summary and diff table.
//
// A missing snapshot file does not fail the run: the output has status
// "skipped" and no artifacts are written. Every other error aborts the run.
func Diff(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, input DiffInput) (*DiffOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("diff")
	}

	name, sc, err := lookupSource(cfg, input.Source)
	if err != nil {
		return nil, err
	}
	log = log.WithField("source", name)

	oldPath := firstNonBlank(input.Old, sc.Old)
	newPath := firstNonBlank(input.New, sc.New)
	if oldPath == "" || newPath == "" {
		return nil, errors.NewInvalidRequest("old and new snapshot paths are required for source " + name)
	}

	format, err := report.ParseFormat(firstNonBlank(input.Format, cfg.DiffFormat))
	if err != nil {
		return nil, err
	}

	fields := sc.ComparisonFields
	if len(input.Fields) > 0 {
		fields = input.Fields
	}

	opts := loadOptions(name, sc)
	oldSnap, err := record.Load(oldPath, opts)
	if err != nil {
		return skippedOrError(log, name, err)
	}
	newSnap, err := record.Load(newPath, opts)
	if err != nil {
		return skippedOrError(log, name, err)
	}

	res, err := diff.Diff(oldSnap, newSnap, diff.Options{
		Source:           name,
		ComparisonFields: fields,
		Rules:            rulesFor(sc),
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}

	runAt := input.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}
	summary := res.Summary(runAt)

	out := &DiffOutput{
		Source:          name,
		Status:          StatusOK,
		Summary:         &summary,
		EffectiveFields: res.EffectiveFields,
		DroppedFields:   res.DroppedFields,
		Duplicates:      oldSnap.Duplicates + newSnap.Duplicates,
		Table:           res.Table,
	}
	if input.DryRun {
		return out, nil
	}

	outDir := firstNonBlank(input.OutDir, cfg.ReportDir)
	if outDir == "" {
		return nil, errors.NewInvalidRequest("report directory is required")
	}
	paths, err := report.Emit(outDir, summary, res.Table, format)
	if err != nil {
		return nil, err
	}
	out.Paths = paths

	log.WithFields(logrus.Fields{
		"summary": paths.Summary,
		"table":   paths.Table,
		"changes": summary.Counts.Total(),
	}).Info("report written")

	return out, nil
}

// skippedOrError turns a recoverable load failure into a skipped run.
func skippedOrError(log logrus.FieldLogger, name string, err error) (*DiffOutput, error) {
	if !errors.IsRecoverable(err) {
		return nil, err
	}
	log.WithError(err).Warn("snapshot missing, skipping source")
	return &DiffOutput{
		Source: name,
		Status: StatusSkipped,
		Reason: err.Error(),
	}, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

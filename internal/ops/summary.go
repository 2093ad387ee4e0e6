package ops

import (
	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/diff"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/report"
)

// SummaryInput contains parameters for the Summary operation.
type SummaryInput struct {
	Source       string // required
	ReportDir    string // optional, default: cfg.ReportDir
	WithMarkdown bool   // also render a markdown digest from the latest diff table
	WithTable    bool   // also return the latest diff table
}

// SummaryOutput contains the result of the Summary operation.
type SummaryOutput struct {
	Summary   diff.Summary `json:"summary"`
	TablePath string       `json:"table_path,omitempty"`
	Markdown  string       `json:"markdown,omitempty"`
	Table     *diff.Table  `json:"table,omitempty"`

	// Comparison is the source's configured comparison, used to list changed columns.
	Comparison report.Comparison `json:"-"`
}

// Summary reads the last written summary for a source. A source that has
// never been diffed is NOT_FOUND.
func Summary(cfg *config.Config, input SummaryInput) (*SummaryOutput, error) {
	source := firstNonBlank(input.Source)
	if source == "" {
		return nil, errors.NewInvalidRequest("source is required")
	}
	dir := firstNonBlank(input.ReportDir, cfg.ReportDir)

	s, err := report.ReadSummary(report.SummaryPath(dir, source))
	if err != nil {
		return nil, err
	}
	out := &SummaryOutput{Summary: *s}
	if sc, ok := cfg.Source(source); ok {
		out.Comparison = report.Comparison{Fields: sc.ComparisonFields, Rules: rulesFor(sc)}
	}

	if !input.WithMarkdown && !input.WithTable {
		return out, nil
	}

	// The digest still renders (counts only) when the table is gone.
	var table *diff.Table
	path, err := report.LatestDiffPath(dir, source)
	switch {
	case err == nil:
		table, err = report.ReadTable(path)
		if err != nil {
			return nil, err
		}
		out.TablePath = path
	case !errors.Is(err, errors.ErrNotFound):
		return nil, err
	}

	if input.WithTable {
		out.Table = table
	}
	if input.WithMarkdown {
		out.Markdown = report.Markdown(*s, table, out.Comparison)
	}
	return out, nil
}

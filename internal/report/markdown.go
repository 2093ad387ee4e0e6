package report

import (
	"fmt"
	"strings"

	"github.com/hpungsan/snapdiff/internal/diff"
	"github.com/hpungsan/snapdiff/internal/record"
)

// maxListed caps the ids listed per group in a digest.
const maxListed = 25

// Markdown renders a short digest of one run: a counts table and the ids in
// each group, with changed columns for modified ids. Empty groups get a
// placeholder line.
func Markdown(summary diff.Summary, table *diff.Table, cmp Comparison) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", summary.Source)
	fmt.Fprintf(&b, "Run `%s` comparing `%s` to `%s`.\n\n", summary.RunTimestamp, summary.Files.Old, summary.Files.New)

	b.WriteString("| Change | Count |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Added | %d |\n", summary.Counts.Added)
	fmt.Fprintf(&b, "| Deleted | %d |\n", summary.Counts.Deleted)
	fmt.Fprintf(&b, "| Modified | %d |\n\n", summary.Counts.Modified)

	if table == nil {
		table = &diff.Table{}
	}

	writeGroup(&b, "Added", table.Filter(diff.StatusAdded), func(t *diff.Table, i int) string {
		return labelled(t, i, "")
	})
	writeGroup(&b, "Deleted", table.Filter(diff.StatusDeleted), func(t *diff.Table, i int) string {
		return labelled(t, i, "")
	})
	writeGroup(&b, "Modified", table.Filter(diff.StatusModified), func(t *diff.Table, i int) string {
		changes := ChangedColumns(t, i, cmp)
		if len(changes) == 0 {
			return labelled(t, i, diff.SuffixOld)
		}
		parts := make([]string, 0, len(changes))
		for _, c := range changes {
			parts = append(parts, fmt.Sprintf("%s: %s → %s", c.Column, quoteCell(c.Old), quoteCell(c.New)))
		}
		return fmt.Sprintf("%s (%s)", labelled(t, i, diff.SuffixOld), strings.Join(parts, "; "))
	})

	return b.String()
}

func writeGroup(b *strings.Builder, heading string, rows *diff.Table, line func(*diff.Table, int) string) {
	fmt.Fprintf(b, "### %s\n\n", heading)
	if rows.Len() == 0 {
		fmt.Fprintf(b, "_No %s records in this run._\n\n", strings.ToLower(heading))
		return
	}
	for i := 0; i < rows.Len() && i < maxListed; i++ {
		fmt.Fprintf(b, "- %s\n", line(rows, i))
	}
	if rows.Len() > maxListed {
		fmt.Fprintf(b, "- _and %d more_\n", rows.Len()-maxListed)
	}
	b.WriteString("\n")
}

// labelled renders "`id` title" using the title column (optionally suffixed).
func labelled(t *diff.Table, i int, suffix string) string {
	id := t.Value(i, record.ColID)
	title := t.Value(i, record.ColTitle+suffix)
	if title == "" {
		return fmt.Sprintf("`%s`", escapeCode(id))
	}
	return fmt.Sprintf("`%s` %s", escapeCode(id), escapeInline(title))
}

// ColumnChange is one column that differs on a modified row.
type ColumnChange struct {
	Column string `json:"column"`
	Old    string `json:"old"`
	New    string `json:"new"`
}

// Comparison scopes ChangedColumns to the fields a run compared and the
// normalization it applied. The zero value compares every column verbatim.
type Comparison struct {
	Fields []string
	Rules  record.Rules
}

// ChangedColumns compares the _old and _new cells of row i.
// With cmp.Fields set, only those fields are compared, after cmp.Rules; the
// reported values stay raw. Otherwise every suffixed column is compared as-is.
// A column present on only one side counts as changed when the present side
// is non-empty.
func ChangedColumns(t *diff.Table, i int, cmp Comparison) []ColumnChange {
	var out []ColumnChange
	for _, base := range comparedColumns(t, cmp.Fields) {
		oldVal := t.Value(i, base+diff.SuffixOld)
		newVal := t.Value(i, base+diff.SuffixNew)
		if cmp.Rules.Apply(base, oldVal) != cmp.Rules.Apply(base, newVal) {
			out = append(out, ColumnChange{Column: base, Old: oldVal, New: newVal})
		}
	}
	return out
}

// comparedColumns lists the base names of suffixed columns in table order,
// restricted to fields when it is non-empty.
func comparedColumns(t *diff.Table, fields []string) []string {
	var bases []string
	seen := make(map[string]bool)
	for _, col := range t.Columns {
		var base string
		switch {
		case strings.HasSuffix(col, diff.SuffixOld):
			base = strings.TrimSuffix(col, diff.SuffixOld)
		case strings.HasSuffix(col, diff.SuffixNew):
			base = strings.TrimSuffix(col, diff.SuffixNew)
		default:
			continue
		}
		if seen[base] {
			continue
		}
		seen[base] = true
		bases = append(bases, base)
	}
	if len(fields) == 0 {
		return bases
	}

	scoped := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			scoped = append(scoped, f)
		}
	}
	return scoped
}

func quoteCell(s string) string {
	if s == "" {
		return "_(missing)_"
	}
	return "`" + escapeCode(s) + "`"
}

func escapeCode(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

var inlineEscaper = strings.NewReplacer("*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;")

func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}

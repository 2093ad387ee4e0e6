package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/db"
	"github.com/hpungsan/snapdiff/internal/diff"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/ops"
	"github.com/hpungsan/snapdiff/internal/record"
	"github.com/hpungsan/snapdiff/internal/report"
)

// Handlers contains HTTP route handlers for the dashboard.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// sourceJSON is the JSON shape of one row of GET /sources.
type sourceJSON struct {
	Name    string           `json:"name"`
	Summary *diff.Summary    `json:"summary"` // null until the source is diffed
	Indexed *db.SnapshotLoad `json:"indexed"` // null until the source is indexed
}

// HandleSources handles GET /sources: latest counts for every configured source.
func (h *Handlers) HandleSources(w http.ResponseWriter, r *http.Request) {
	names := h.cfg.SourceNames()
	rows := make([]SourceRow, 0, len(names))

	indexed := map[string]*db.SnapshotLoad{}
	if h.db != nil {
		loads, err := db.ListLoads(r.Context(), h.db)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		for i := range loads {
			indexed[loads[i].Source] = &loads[i]
		}
	}

	for _, name := range names {
		row := SourceRow{Name: name}

		out, err := ops.Summary(h.cfg, ops.SummaryInput{Source: name})
		switch {
		case err == nil:
			row.HasSummary = true
			row.Summary = out.Summary
		case !errors.Is(err, errors.ErrNotFound):
			h.renderer.renderError(w, r, err)
			return
		}

		row.Indexed = indexed[name]
		rows = append(rows, row)
	}

	if wantsJSON(r) {
		items := make([]sourceJSON, 0, len(rows))
		for i := range rows {
			item := sourceJSON{Name: rows[i].Name, Indexed: rows[i].Indexed}
			if rows[i].HasSummary {
				item.Summary = &rows[i].Summary
			}
			items = append(items, item)
		}
		renderJSON(w, http.StatusOK, map[string]any{"sources": items})
		return
	}

	h.renderer.renderPage(w, r, "sources", SourcesPageData{
		PageData: h.renderer.page("Sources", "sources"),
		Sources:  rows,
	})
}

// HandleSource handles GET /sources/{name}: the latest run of one source.
func (h *Handlers) HandleSource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := h.cfg.Source(name); !ok {
		h.renderer.renderError(w, r, errors.NewUnknownSource(name))
		return
	}

	out, err := ops.Summary(h.cfg, ops.SummaryInput{
		Source:       name,
		WithMarkdown: true,
		WithTable:    true,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	modified := modifiedRows(out.Table, out.Comparison)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"summary":    out.Summary,
			"table_path": out.TablePath,
			"modified":   modified,
		})
		return
	}

	data := SourcePageData{
		PageData:  h.renderer.page(name, "sources"),
		Source:    name,
		Summary:   out.Summary,
		Bars:      countBars(out.Summary.Counts),
		Digest:    renderMarkdown(out.Markdown),
		Modified:  modified,
		TablePath: out.TablePath,
		HasTable:  out.Table != nil,
	}
	if h.db != nil {
		if load, err := db.GetLoad(r.Context(), h.db, name); err == nil {
			data.IndexedCount = load.RecordCount
		}
	}

	h.renderer.renderPage(w, r, "source", data)
}

// HandleRecords handles GET /sources/{name}/records: keyword search over
// the indexed latest snapshot.
func (h *Handlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := h.cfg.Source(name); !ok {
		h.renderer.renderError(w, r, errors.NewUnknownSource(name))
		return
	}
	if h.db == nil {
		h.renderer.renderError(w, r, errors.NewNotFound("index for "+name))
		return
	}

	query := r.URL.Query().Get("q")
	result, err := ops.Search(r.Context(), h.db, ops.SearchInput{
		Source: name,
		Query:  query,
		Limit:  parseIntParam(r, "limit", ops.DefaultSearchLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "records", RecordsPageData{
		PageData:   h.renderer.page(name+" records", "records"),
		Source:     name,
		Query:      query,
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// modifiedRows lists the modified records of a diff table with their
// before and after values for the compared fields.
func modifiedRows(table *diff.Table, cmp report.Comparison) []ModifiedRow {
	if table == nil {
		return []ModifiedRow{}
	}
	modified := table.Filter(diff.StatusModified)
	rows := make([]ModifiedRow, 0, modified.Len())
	for i := 0; i < modified.Len(); i++ {
		title := modified.Value(i, record.ColTitle+diff.SuffixNew)
		if title == "" {
			title = modified.Value(i, record.ColTitle+diff.SuffixOld)
		}
		rows = append(rows, ModifiedRow{
			ID:      modified.Value(i, record.ColID),
			Title:   title,
			Changes: report.ChangedColumns(modified, i, cmp),
		})
	}
	return rows
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log logrus.FieldLogger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, log logrus.FieldLogger) *Handlers {
	return &Handlers{db: db, cfg: cfg, log: log}
}

// Request types for each tool

// DiffRequest represents the arguments for snapshot_diff.
type DiffRequest struct {
	Source string   `json:"source"`
	Old    string   `json:"old,omitempty"`
	New    string   `json:"new,omitempty"`
	Fields []string `json:"fields,omitempty"`
	OutDir string   `json:"out_dir,omitempty"`
	Format string   `json:"format,omitempty"`
	DryRun bool     `json:"dry_run,omitempty"`
}

// BatchRequest represents the arguments for snapshot_batch.
type BatchRequest struct {
	Sources     []string `json:"sources,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
	Format      string   `json:"format,omitempty"`
	DryRun      bool     `json:"dry_run,omitempty"`
}

// IndexRequest represents the arguments for snapshot_index.
type IndexRequest struct {
	Source string `json:"source"`
	Path   string `json:"path,omitempty"`
}

// SearchRequest represents the arguments for snapshot_search.
type SearchRequest struct {
	Source string `json:"source"`
	Query  string `json:"query,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SummaryRequest represents the arguments for report_summary.
type SummaryRequest struct {
	Source       string `json:"source"`
	Markdown     bool   `json:"markdown,omitempty"`
	IncludeTable bool   `json:"include_table,omitempty"`
}

// HandleDiff handles the snapshot_diff tool call.
func (h *Handlers) HandleDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiffRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	// Caller-supplied paths are untrusted; configured ones are not checked.
	for _, p := range []string{input.Old, input.New} {
		if err := h.checkSnapshotPath(p); err != nil {
			return errorResult(err), nil
		}
	}
	if input.OutDir != "" {
		if err := ops.ValidatePath(input.OutDir, ops.PathCheckReportDir, h.cfg); err != nil {
			return errorResult(err), nil
		}
	}

	result, err := ops.Diff(ctx, h.cfg, h.log, ops.DiffInput{
		Source: input.Source,
		Old:    input.Old,
		New:    input.New,
		Fields: input.Fields,
		OutDir: input.OutDir,
		Format: input.Format,
		DryRun: input.DryRun,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBatch handles the snapshot_batch tool call.
func (h *Handlers) HandleBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BatchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Concurrency < 0 {
		return errorResult(errors.NewInvalidRequest("concurrency must be positive")), nil
	}

	result, err := ops.Batch(ctx, h.cfg, h.log, ops.BatchInput{
		Sources:     input.Sources,
		Concurrency: input.Concurrency,
		Format:      input.Format,
		DryRun:      input.DryRun,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleIndex handles the snapshot_index tool call.
func (h *Handlers) HandleIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IndexRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path != "" {
		if err := ops.ValidatePath(input.Path, ops.PathCheckSnapshot, h.cfg); err != nil {
			return errorResult(err), nil
		}
	}

	result, err := ops.Index(ctx, h.db, h.cfg, h.log, ops.IndexInput{
		Source: input.Source,
		Path:   input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the snapshot_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.db, ops.SearchInput{
		Source: input.Source,
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummary handles the report_summary tool call.
func (h *Handlers) HandleSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if _, ok := h.cfg.Source(input.Source); !ok && input.Source != "" {
		return errorResult(errors.NewUnknownSource(input.Source)), nil
	}

	result, err := ops.Summary(h.cfg, ops.SummaryInput{
		Source:       input.Source,
		WithMarkdown: input.Markdown,
		WithTable:    input.IncludeTable,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// checkSnapshotPath validates a caller-supplied snapshot path. A missing file
// passes so the diff reports the source as skipped.
func (h *Handlers) checkSnapshotPath(path string) error {
	if path == "" {
		return nil
	}
	if err := ops.ValidatePath(path, ops.PathCheckSnapshot, h.cfg); err != nil && !errors.IsRecoverable(err) {
		return err
	}
	return nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Errors that are not SnapErrors are reported without their text.
func errorResult(err error) *mcp.CallToolResult {
	var errorObj map[string]any

	if sErr, ok := errors.As(err); ok {
		errorObj = errors.Object(sErr)
		// Keep wrapper context such as "load old: ..."
		if error(sErr) != err {
			errorObj["message"] = err.Error()
		}
	} else {
		errorObj = map[string]any{
			"code":    errors.ErrInternal,
			"message": "an internal error occurred",
			"status":  500,
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var diffToolDef = mcp.NewTool("snapshot_diff",
	mcp.WithDescription("Compare the old and new snapshot of one source and write the summary JSON and diff table. "+
		"Returns counts, the effective comparison fields, dropped fields and artifact paths. "+
		"A missing snapshot file yields status \"skipped\" instead of an error."),
	mcp.WithString("source", mcp.Required(), mcp.Description("Configured source name, e.g. books_static")),
	mcp.WithString("old", mcp.Description("Old snapshot path (.csv, .tsv or .jsonl). Defaults to the source's configured path")),
	mcp.WithString("new", mcp.Description("New snapshot path. Defaults to the source's configured path")),
	mcp.WithArray("fields", mcp.WithStringItems(), mcp.Description("Comparison fields overriding the source's comparison_fields")),
	mcp.WithString("out_dir", mcp.Description("Report directory. Defaults to report_dir")),
	mcp.WithString("format", mcp.Enum("csv", "tsv", "xlsx"), mcp.Description("Diff table format. Defaults to diff_format")),
	mcp.WithBoolean("dry_run", mcp.Description("Compare only; write no files")),
)

var batchToolDef = mcp.NewTool("snapshot_batch",
	mcp.WithDescription("Diff several sources concurrently. One source failing never stops the others; "+
		"each item reports ok, skipped or failed."),
	mcp.WithArray("sources", mcp.WithStringItems(), mcp.Description("Sources to run. Defaults to every configured source")),
	mcp.WithNumber("concurrency", mcp.Description("Maximum sources diffed at once. Defaults to batch_concurrency")),
	mcp.WithString("format", mcp.Enum("csv", "tsv", "xlsx"), mcp.Description("Diff table format")),
	mcp.WithBoolean("dry_run", mcp.Description("Compare only; write no files")),
)

var indexToolDef = mcp.NewTool("snapshot_index",
	mcp.WithDescription("Load a source's latest snapshot into the keyword search index, replacing the previous one."),
	mcp.WithString("source", mcp.Required(), mcp.Description("Configured source name")),
	mcp.WithString("path", mcp.Description("Snapshot path. Defaults to the source's configured new snapshot")),
)

var searchToolDef = mcp.NewTool("snapshot_search",
	mcp.WithDescription("Find indexed records of a source whose title contains a keyword, ignoring case."),
	mcp.WithString("source", mcp.Required(), mcp.Description("Configured source name")),
	mcp.WithString("query", mcp.Description("Title keyword. Empty lists every record")),
	mcp.WithNumber("limit", mcp.Description("Max results (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Pagination offset")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var summaryToolDef = mcp.NewTool("report_summary",
	mcp.WithDescription("Read the last summary written for a source, optionally with a markdown digest "+
		"and the latest diff table."),
	mcp.WithString("source", mcp.Required(), mcp.Description("Configured source name")),
	mcp.WithBoolean("markdown", mcp.Description("Include a markdown digest")),
	mcp.WithBoolean("include_table", mcp.Description("Include the latest diff table rows")),
	mcp.WithReadOnlyHintAnnotation(true),
)

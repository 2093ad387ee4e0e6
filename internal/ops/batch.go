package ops

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/diff"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/report"
)

// BatchInput contains parameters for the Batch operation.
type BatchInput struct {
	Sources     []string  // optional, default: every configured source
	Concurrency int       // optional, default: cfg.BatchConcurrency
	OutDir      string    // optional, default: cfg.ReportDir
	Format      string    // optional, default: cfg.DiffFormat
	DryRun      bool      // compare only, write nothing
	RunAt       time.Time // optional, default: now; shared by every source
}

// BatchItem is the outcome for one source.
type BatchItem struct {
	Source string         `json:"source"`
	Status string         `json:"status"` // "ok", "skipped" or "failed"
	Reason string         `json:"reason,omitempty"`
	Counts *diff.Counts   `json:"counts,omitempty"`
	Paths  *report.Paths  `json:"paths,omitempty"`
	Error  map[string]any `json:"error,omitempty"`
}

// BatchOutput contains the result of the Batch operation.
type BatchOutput struct {
	RunID   string      `json:"run_id"`
	Items   []BatchItem `json:"items"` // in input order
	OK      int         `json:"ok"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
}

// Batch diffs several sources concurrently. One source failing never stops the
// others; its item records the error instead. Cancellation is checked before
// each source starts and returns CANCELLED once the running sources finish.
func Batch(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, input BatchInput) (*BatchOutput, error) {
	sources := input.Sources
	if len(sources) == 0 {
		sources = cfg.SourceNames()
	}
	if len(sources) == 0 {
		return nil, errors.NewInvalidRequest("no sources configured")
	}

	limit := input.Concurrency
	if limit <= 0 {
		limit = cfg.BatchConcurrency
	}
	if limit <= 0 {
		limit = 1
	}

	runID, err := generateULID()
	if err != nil {
		return nil, err
	}
	log = log.WithField("run_id", runID)

	runAt := input.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}

	items := make([]BatchItem, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, source := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = runOne(gctx, cfg, log, source, input, runAt)
			return nil
		})
	}
	waitErr := g.Wait()

	if ctx.Err() != nil || waitErr != nil {
		log.Warn("batch cancelled")
		return nil, errors.NewCancelled("batch")
	}

	out := &BatchOutput{RunID: runID, Items: items}
	for _, item := range items {
		switch item.Status {
		case StatusOK:
			out.OK++
		case StatusSkipped:
			out.Skipped++
		default:
			out.Failed++
		}
	}

	log.WithFields(logrus.Fields{
		"ok":      out.OK,
		"skipped": out.Skipped,
		"failed":  out.Failed,
	}).Info("batch finished")

	return out, nil
}

// runOne diffs a single source and folds any error into its item.
func runOne(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, source string, input BatchInput, runAt time.Time) BatchItem {
	res, err := Diff(ctx, cfg, log, DiffInput{
		Source: source,
		OutDir: input.OutDir,
		Format: input.Format,
		DryRun: input.DryRun,
		RunAt:  runAt,
	})
	if err != nil {
		config.LogSourceError(log, source, "diff", err)
		return BatchItem{
			Source: source,
			Status: StatusFailed,
			Error:  errors.Object(err),
		}
	}

	item := BatchItem{
		Source: res.Source,
		Status: res.Status,
		Reason: res.Reason,
		Paths:  res.Paths,
	}
	if res.Summary != nil {
		counts := res.Summary.Counts
		item.Counts = &counts
	}
	return item
}

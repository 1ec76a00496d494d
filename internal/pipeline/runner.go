// Package pipeline drives a generate run: units are extracted one at a time,
// merged into a tag database and written out once at the end.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvp-joe/tagsgen/internal/extract"
	"github.com/mvp-joe/tagsgen/internal/tagdb"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

// Summary describes a finished run.
type Summary struct {
	Units     int
	Reflected int // units extracted by the primary strategy
	FellBack  int // units extracted by the fallback strategy
	Skipped   int // entry points, ignored and deprecated units
	Failed    int // units neither strategy could read
	Records   int
	Output    string
	Duration  time.Duration
	DB        tagdb.Stats
}

// Runner extracts units sequentially into a DB.
type Runner struct {
	primary  extract.Extractor
	fallback extract.Extractor
	db       *tagdb.DB
	logger   *slog.Logger
	progress ProgressReporter
	start    time.Time
}

// NewRunner creates a runner. fallback may be nil, in which case units that
// fail to load are counted as failed.
func NewRunner(primary, fallback extract.Extractor, db *tagdb.DB, logger *slog.Logger, progress ProgressReporter) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if progress == nil {
		progress = NoOpProgressReporter{}
	}
	return &Runner{
		primary:  primary,
		fallback: fallback,
		db:       db,
		logger:   logger,
		progress: progress,
	}
}

// Run extracts every unit in order. Per-unit problems are logged and the run
// continues; an error that is not specific to a unit, such as an interpreter
// that cannot start, stops the run and is returned with the unit it hit.
func (r *Runner) Run(ctx context.Context, units []extract.Unit) (*Summary, error) {
	r.start = time.Now()
	summary := &Summary{Units: len(units)}
	r.progress.OnUnitsStart(len(units))

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return r.finish(summary), err
		}
		if err := r.runUnit(ctx, unit, summary); err != nil {
			return r.finish(summary), fmt.Errorf("unit %s: %w", unit.Name, err)
		}
		r.progress.OnUnitProcessed(unit.Name)
	}
	return r.finish(summary), nil
}

func (r *Runner) runUnit(ctx context.Context, unit extract.Unit, summary *Summary) error {
	res, err := r.primary.Extract(ctx, unit)
	switch {
	case err == nil:
		summary.Reflected++
		r.merge(res)
		return nil

	case extract.IsSkip(err):
		summary.Skipped++
		r.logger.Info("skipping unit", "unit", unit.Name, "reason", err)
		return nil

	case extract.ShouldFallback(err):
		if res != nil {
			unit = res.Unit
		}
		return r.runFallback(ctx, unit, err, summary)

	default:
		return err
	}
}

func (r *Runner) runFallback(ctx context.Context, unit extract.Unit, cause error, summary *Summary) error {
	if r.fallback == nil {
		summary.Failed++
		r.logger.Warn("unit not extracted", "unit", unit.Name, "reason", cause)
		return nil
	}

	r.logger.Warn("falling back to source scan", "unit", unit.Name, "strategy", r.fallback.Name(), "reason", cause)
	res, err := r.fallback.Extract(ctx, unit)
	if err != nil {
		summary.Failed++
		r.logger.Warn("unit not extracted", "unit", unit.Name, "reason", err)
		return nil
	}
	summary.FellBack++
	r.merge(res)
	return nil
}

// merge adds a result's records. Rejected records are logged, never fatal.
func (r *Runner) merge(res *extract.Result) {
	if res.Partial != nil {
		r.logger.Warn("unit partially extracted", "unit", res.Unit.Name, "records", len(res.Records), "reason", res.Partial)
	}
	for _, s := range res.Skipped {
		r.logger.Debug("member skipped", "unit", res.Unit.Name, "member", s.Name, "reason", s.Reason)
	}
	for _, rec := range res.Records {
		if _, err := r.db.Add(rec); err != nil {
			r.logger.Debug("record rejected", "unit", res.Unit.Name, "record", rec.String(), "error", err)
		}
	}
}

func (r *Runner) finish(summary *Summary) *Summary {
	summary.Records = r.db.Len()
	summary.DB = r.db.Stats()
	summary.Duration = time.Since(r.start)
	return summary
}

// Write writes the accumulated records to path.
func (r *Runner) Write(path string, header tags.Header, summary *Summary) error {
	r.progress.OnWriting(path)
	if err := r.db.WriteFile(path, header); err != nil {
		return err
	}
	if summary != nil {
		summary.Output = path
		summary.Duration = time.Since(r.start)
		r.progress.OnComplete(summary)
	}
	return nil
}

// Package corpus orchestrates the corpus run: one shared sink, one
// shared dedup set, sequential bounded passes over each source.
//
// The output format is bare newline-delimited text. Accepted records
// containing embedded newlines are written verbatim, so on read-back
// such a record is indistinguishable from several adjacent records.
// That ambiguity is inherited from the format, deliberately left as is.
package corpus

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/collector"
	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/source"
)

// RunOpts configures which sources a run draws from and how.
type RunOpts struct {
	Sources []string // restrict to specific source names
	DryRun  bool     // count and dedup, write nothing
}

// PassResult holds the outcome of one source pass.
type PassResult struct {
	Source       string        `json:"source"`
	Quota        int64         `json:"quota"`
	BytesWritten int64         `json:"bytes_written"`
	RecordsKept  int64         `json:"records_kept"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Summary aggregates a whole run for final reporting.
type Summary struct {
	RunID      string        `json:"run_id"`
	OutputPath string        `json:"output_path"`
	TotalBytes int64         `json:"total_bytes"`
	TotalKept  int64         `json:"total_kept"`
	Passes     []PassResult  `json:"passes"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Engine runs the collection passes.
type Engine struct {
	cfg config.CorpusConfig
	reg *source.Registry
}

// NewEngine creates an engine over the given registry.
func NewEngine(cfg config.CorpusConfig, reg *source.Registry) *Engine {
	return &Engine{cfg: cfg, reg: reg}
}

// Run executes one corpus run: recreate the output file, then walk the
// selected sources in registration order, each pass bounded by its
// fraction of the byte target and sharing one dedup set. A pass-level
// fetch or write failure aborts the whole run; there is no checkpoint
// to resume from.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Summary, error) {
	log := zap.L().With(zap.String("component", "corpus.engine"))
	runID := uuid.NewString()
	start := time.Now()

	sources, err := e.reg.Select(opts.Sources)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, eris.New("engine: no sources selected")
	}

	var out io.Writer = io.Discard
	var sink *Sink
	if opts.DryRun {
		// Fail on a bad output path even when not writing, so a dry
		// run rehearses the real run's failure mode too.
		if err := CheckPath(e.cfg.OutputPath); err != nil {
			return nil, err
		}
	} else {
		sink, err = NewSink(e.cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		out = sink
	}

	log.Info("starting run",
		zap.String("run_id", runID),
		zap.String("output", e.cfg.OutputPath),
		zap.Int64("target_bytes", e.cfg.TargetBytes),
		zap.Int("sources", len(sources)),
		zap.Bool("dry_run", opts.DryRun),
	)

	summary, runErr := e.runPasses(ctx, log, runID, sources, out)

	if sink != nil {
		if closeErr := sink.Close(); closeErr != nil && runErr == nil {
			runErr = closeErr
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	summary.RunID = runID
	summary.OutputPath = e.cfg.OutputPath
	summary.Elapsed = time.Since(start)

	log.Info("run complete",
		zap.String("run_id", runID),
		zap.Int64("total_bytes", summary.TotalBytes),
		zap.Int64("total_kept", summary.TotalKept),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (e *Engine) runPasses(ctx context.Context, log *zap.Logger, runID string, sources []source.Source, out io.Writer) (*Summary, error) {
	seen := collector.NewSeenSet()
	filterOpts := collector.Options{
		MinChars: e.cfg.MinChars,
		MaxChars: e.cfg.MaxChars,
	}

	summary := &Summary{}
	for _, src := range sources {
		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "engine: run cancelled")
		default:
		}

		quota := int64(src.Fraction() * float64(e.cfg.TargetBytes))
		passLog := log.With(
			zap.String("run_id", runID),
			zap.String("source", src.Name()),
			zap.Int64("quota", quota),
		)
		passLog.Info("starting pass")

		passStart := time.Now()
		written, kept, err := collector.Collect(ctx, src, out, quota, filterOpts, seen)
		elapsed := time.Since(passStart)

		if err != nil {
			passLog.Error("pass failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			return nil, eris.Wrapf(err, "engine: pass %s", src.Name())
		}

		passLog.Info("pass complete",
			zap.Int64("bytes_written", written),
			zap.Int64("records_kept", kept),
			zap.Duration("elapsed", elapsed),
		)

		summary.Passes = append(summary.Passes, PassResult{
			Source:       src.Name(),
			Quota:        quota,
			BytesWritten: written,
			RecordsKept:  kept,
			Elapsed:      elapsed,
		})
		summary.TotalBytes += written
		summary.TotalKept += kept
	}

	return summary, nil
}

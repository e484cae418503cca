package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"target-sweep/internal/clean"
	"target-sweep/internal/config"
	"target-sweep/internal/database"
	"target-sweep/internal/fileset"
	"target-sweep/internal/logging"
	"target-sweep/internal/metrics"
	"target-sweep/internal/report"
	"target-sweep/internal/safety"
)

var (
	ErrInvalidTarget = errors.New("invalid target")
	ErrUnsafeTarget  = errors.New("unsafe target")
	ErrCleanFailed   = errors.New("clean failed")
)

// Summary is the result of one run
type Summary struct {
	RunID    string
	BaseDir  string
	Started  time.Time
	Finished time.Time
	Skipped  bool
	Outcomes []clean.Outcome
}

// Err returns the fatal failure of the run wrapped in ErrCleanFailed,
// or nil when every target completed
func (s *Summary) Err() error {
	for _, o := range s.Outcomes {
		if err := o.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCleanFailed, err)
		}
	}
	return nil
}

// Report converts the summary into its JSON report form
func (s *Summary) Report() *report.Report {
	return report.New(s.RunID, s.BaseDir, s.Started, s.Finished, s.Outcomes, s.Skipped)
}

// Targets builds clean targets from configuration: whole directories
// first, then filesets, each in configuration order
func Targets(cfg *config.Config) ([]clean.Target, error) {
	targets := make([]clean.Target, 0, len(cfg.Directories)+len(cfg.Filesets))

	for _, dir := range cfg.Directories {
		targets = append(targets, clean.Target{
			Path:           dir,
			FollowSymlinks: cfg.FollowSymlinks,
		})
	}

	for i, fsCfg := range cfg.Filesets {
		m, err := fileset.New(fsCfg.Includes, fsCfg.Excludes, fsCfg.DefaultExcludes())
		if err != nil {
			return nil, fmt.Errorf("%w: filesets[%d]: %v", ErrInvalidTarget, i, err)
		}
		targets = append(targets, clean.Target{
			Path:           fsCfg.Directory,
			Selector:       m,
			FollowSymlinks: fsCfg.FollowSymlinks,
		})
	}

	return targets, nil
}

func RunOnce(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Summary, error) {
	return RunOnceWithDB(ctx, cfg, logger, nil)
}

// RunOnceWithDB cleans every configured target in order, stopping at the
// first target that aborts. Every root is validated before anything is
// deleted. db may be nil.
func RunOnceWithDB(ctx context.Context, cfg *config.Config, logger *log.Logger, db *database.DeletionDB) (*Summary, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	lg := logging.NewLeveled(logger, cfg.Verbose)
	metrics.Init()

	summary := &Summary{
		RunID:   uuid.NewString(),
		BaseDir: cfg.BaseDir,
		Started: time.Now(),
	}

	if cfg.Skip {
		lg.Info("Clean is skipped.")
		summary.Skipped = true
		finish(cfg, lg, db, summary)
		return summary, nil
	}

	targets, err := Targets(cfg)
	if err != nil {
		return nil, err
	}

	validator := safety.NewValidator(cfg.AllowedRoots, cfg.ProtectedPaths)
	for _, t := range targets {
		if err := validator.ValidateTarget(t.Path, t.FollowSymlinks); err != nil {
			metrics.ErrorsTotal.Inc()
			return nil, fmt.Errorf("%w: %s: %w", ErrUnsafeTarget, t.Path, err)
		}
	}

	cleaner := clean.NewCleaner(lg, cfg.Verbose)
	cleaner.SetRetryDelay(cfg.RetryDelay())
	if db != nil {
		cleaner.SetRecorder(db.ForRun(summary.RunID))
	}
	policy := clean.Policy{
		FailOnError:  cfg.FailOnError,
		RetryOnError: cfg.RetryOnError,
	}

	var ctxErr error
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			lg.Warn("Run cancelled", "remaining_target", t.Path)
			ctxErr = err
			break
		}

		out := cleaner.Delete(t, policy)
		summary.Outcomes = append(summary.Outcomes, out)

		result := report.ResultOK
		if !out.Completed {
			result = report.ResultFailed
		}
		metrics.RecordTarget(out.Mode, result)

		if !out.Completed {
			break
		}
	}

	finish(cfg, lg, db, summary)

	if ctxErr != nil {
		return summary, ctxErr
	}
	return summary, summary.Err()
}

// finish records the run in metrics, the audit database and the report.
// Failures here are logged and counted but never change the run result.
func finish(cfg *config.Config, lg *logging.Leveled, db *database.DeletionDB, s *Summary) {
	s.Finished = time.Now()
	elapsed := s.Finished.Sub(s.Started)
	metrics.RecordRun(s.Started, elapsed)

	r := s.Report()

	if db != nil {
		err := db.RecordRun(database.RunRecord{
			RunID:      s.RunID,
			StartedAt:  s.Started,
			FinishedAt: s.Finished,
			BaseDir:    s.BaseDir,
			Targets:    len(r.Targets),
			Removed:    r.Removed,
			BytesFreed: r.BytesFreed,
			Warnings:   r.Warnings,
			Result:     r.Result,
		})
		if err != nil {
			metrics.ErrorsTotal.Inc()
			lg.Error("Failed to record run to database", "run_id", s.RunID, "error", err)
		}
	}

	if cfg.ReportPath != "" {
		if err := report.Write(cfg.ReportPath, r); err != nil {
			metrics.ErrorsTotal.Inc()
			lg.Error("Failed to write report", "path", cfg.ReportPath, "error", err)
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			lg.Error("Failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	lg.Info(fmt.Sprintf("run complete: targets=%d removed=%d freed=%s warnings=%d result=%s duration=%.3fs",
		len(r.Targets), r.Removed, humanize.Bytes(uint64(r.BytesFreed)), r.Warnings, r.Result, elapsed.Seconds()),
		"run_id", s.RunID)
}

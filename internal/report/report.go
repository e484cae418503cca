// Package report writes a machine-readable JSON summary of a run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dchest/safefile"

	"target-sweep/internal/clean"
)

// Result values shared by the report, the audit database and metrics
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

type Failure struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
	Fatal bool   `json:"fatal"`
}

type Target struct {
	Path       string    `json:"path"`
	Mode       string    `json:"mode"`
	Completed  bool      `json:"completed"`
	Removed    int       `json:"removed"`
	BytesFreed int64     `json:"bytes_freed"`
	Failures   []Failure `json:"failures,omitempty"`
}

type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	BaseDir    string    `json:"base_dir"`
	Result     string    `json:"result"`
	Removed    int       `json:"removed"`
	BytesFreed int64     `json:"bytes_freed"`
	Warnings   int       `json:"warnings"`
	Targets    []Target  `json:"targets"`
}

// New builds a report from the outcomes of a run, in target order
func New(runID, baseDir string, started, finished time.Time, outcomes []clean.Outcome, skipped bool) *Report {
	r := &Report{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMS: finished.Sub(started).Milliseconds(),
		BaseDir:    baseDir,
		Result:     ResultOK,
		Targets:    make([]Target, 0, len(outcomes)),
	}
	if skipped {
		r.Result = ResultSkipped
	}

	for _, o := range outcomes {
		t := Target{
			Path:       o.Target,
			Mode:       o.Mode,
			Completed:  o.Completed,
			Removed:    o.Removed,
			BytesFreed: o.BytesFreed,
		}
		for i, f := range o.Failures {
			t.Failures = append(t.Failures, Failure{
				Path:  f.Path,
				Kind:  string(f.Kind),
				Error: f.Err.Error(),
				Fatal: !o.Completed && i == len(o.Failures)-1,
			})
		}

		r.Removed += o.Removed
		r.BytesFreed += o.BytesFreed
		r.Warnings += len(o.Warnings())
		if !o.Completed {
			r.Result = ResultFailed
		}
		r.Targets = append(r.Targets, t)
	}

	return r
}

// Write stores the report as indented JSON. The file is replaced
// atomically so readers never see a partial report.
func Write(path string, r *Report) error {
	bs, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	f, err := safefile.Create(path, 0644)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(bs); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	if err := f.Commit(); err != nil {
		return fmt.Errorf("commit report file: %w", err)
	}
	return nil
}

// Read loads a report written by Write
func Read(path string) (*Report, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(bs, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

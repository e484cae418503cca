package clean

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/prometheus/client_golang/prometheus"

	"target-sweep/internal/fsops"
	"target-sweep/internal/logging"
	"target-sweep/internal/metrics"
)

// DefaultRetryDelay is the pause before the single retry of a failed removal
const DefaultRetryDelay = 50 * time.Millisecond

// Logger interface for structured logging in the cleaner
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// Metrics interface for cleaner metrics
type Metrics interface {
	EntriesRemovedTotal(kind string) prometheus.Counter
	BytesFreedTotal() prometheus.Counter
	FailuresTotal(kind, severity string) prometheus.Counter
	RetriesTotal() prometheus.Counter
}

// cleanMetrics wraps global metrics to implement Metrics interface
type cleanMetrics struct{}

func (m *cleanMetrics) EntriesRemovedTotal(kind string) prometheus.Counter {
	return metrics.EntriesRemovedTotal.WithLabelValues(kind)
}

func (m *cleanMetrics) BytesFreedTotal() prometheus.Counter {
	return metrics.BytesFreedTotal
}

func (m *cleanMetrics) FailuresTotal(kind, severity string) prometheus.Counter {
	return metrics.FailuresTotal.WithLabelValues(kind, severity)
}

func (m *cleanMetrics) RetriesTotal() prometheus.Counter {
	return metrics.RetriesTotal
}

// Action is what happened to a path
type Action string

const (
	ActionDelete Action = "DELETE"
	ActionWarn   Action = "WARN"
	ActionFail   Action = "FAIL"
)

// Event is a single removal or failure, handed to the Recorder
type Event struct {
	Time    time.Time
	Action  Action
	Target  string
	Path    string
	Kind    fsops.Kind
	Size    int64
	Failure FailureKind
	Err     error
}

// Recorder persists events, for example into the audit database
type Recorder interface {
	Record(ev Event) error
}

// Cleaner deletes targets depth-first, children before parents
type Cleaner struct {
	logger     Logger
	metrics    Metrics
	deleter    fsops.Deleter
	tree       fsops.Tree
	recorder   Recorder
	clock      clock.Clock
	retryDelay time.Duration
	verbose    bool
}

// NewCleaner creates a Cleaner working on the real filesystem.
// verbose logs every deleted entry at info level.
func NewCleaner(logger Logger, verbose bool) *Cleaner {
	if logger == nil {
		logger = logging.NewLeveled(nil, false)
	}
	metrics.Init()
	return &Cleaner{
		logger:     logger,
		metrics:    &cleanMetrics{},
		deleter:    fsops.OS{},
		tree:       fsops.OS{},
		clock:      clock.WallClock,
		retryDelay: DefaultRetryDelay,
		verbose:    verbose,
	}
}

func (c *Cleaner) SetDeleter(d fsops.Deleter) {
	c.deleter = d
}

func (c *Cleaner) SetTree(t fsops.Tree) {
	c.tree = t
}

func (c *Cleaner) SetRecorder(r Recorder) {
	c.recorder = r
}

func (c *Cleaner) SetMetrics(m Metrics) {
	c.metrics = m
}

func (c *Cleaner) SetClock(clk clock.Clock) {
	c.clock = clk
}

// SetRetryDelay sets the pause before a retry; non-positive values
// restore DefaultRetryDelay
func (c *Cleaner) SetRetryDelay(d time.Duration) {
	if d <= 0 {
		d = DefaultRetryDelay
	}
	c.retryDelay = d
}

// Delete cleans a single target under the given policy. A missing root
// is a successful no-op. The filesystem is left as it is when the
// policy aborts.
func (c *Cleaner) Delete(target Target, policy Policy) Outcome {
	w := &walk{
		c:      c,
		target: target,
		policy: policy,
		out: Outcome{
			Target:    target.Path,
			Mode:      target.Mode(),
			Completed: true,
		},
	}
	w.run()
	return w.out
}

// walk holds the traversal state of one Delete call
type walk struct {
	c      *Cleaner
	target Target
	policy Policy
	out    Outcome
}

func (w *walk) run() {
	root, err := w.c.tree.Classify(w.target.Path)
	if err != nil {
		w.fail(fsops.Entry{Path: w.target.Path}, err)
		return
	}

	// A root link to nothing is as absent as a missing root; the link is kept.
	if root.Kind == fsops.Missing || root.Dangling {
		w.c.logger.Debug("Skipping non-existing directory", "path", root.Path)
		return
	}
	if !root.Kind.IsDir() {
		w.fail(root, fmt.Errorf("%w: expected directory but found %s", ErrKindMismatch, root.Kind))
		return
	}

	msg := "Deleting " + root.Path
	if w.target.Selector != nil {
		msg += " (" + w.target.Selector.String() + ")"
	}
	w.c.logger.Info(msg)

	w.visit(root, "")
}

// visit deletes e after its children. retained reports that e or
// something below it was deliberately kept; stop that the policy aborted.
func (w *walk) visit(e fsops.Entry, rel string) (retained, stop bool) {
	sel := w.target.Selector

	if e.Kind.IsDir() {
		switch {
		case sel != nil && !sel.CouldHoldSelected(rel):
			w.c.logger.Debug("Not recursing into directory without selected entries", "path", e.Path)
		case e.Kind == fsops.SymlinkToDir && !w.target.FollowSymlinks:
			w.c.logger.Debug("Not recursing into symlink", "path", e.Path)
		default:
			retained, stop = w.visitChildren(e, rel)
			if stop {
				return true, true
			}
		}
	}

	// The root of a fileset is never removed.
	if sel != nil && (rel == "" || !sel.IsSelected(rel)) {
		return true, false
	}
	if retained {
		return true, false
	}

	if w.c.verbose {
		w.c.logger.Info(fmt.Sprintf("Deleting %s %s", describe(e.Kind), e.Path))
	}
	return false, w.remove(e)
}

func (w *walk) visitChildren(dir fsops.Entry, rel string) (retained, stop bool) {
	names, err := w.c.tree.ReadDirNames(dir.Path)
	if err != nil {
		// Continue as if the directory was empty; removing it will
		// report whatever is left.
		return false, w.fail(dir, err)
	}

	// Reverse order, matching the historical behaviour of the tool.
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		childPath := filepath.Join(dir.Path, name)

		child, err := w.c.tree.Classify(childPath)
		if err != nil {
			if w.fail(fsops.Entry{Path: childPath}, err) {
				return true, true
			}
			continue
		}
		if child.Kind == fsops.Missing {
			continue
		}

		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		r, s := w.visit(child, childRel)
		if s {
			return true, true
		}
		retained = retained || r
	}
	return retained, false
}

func (w *walk) remove(e fsops.Entry) (stop bool) {
	if err := w.c.removeEntry(e.Path, w.policy); err != nil {
		return w.fail(e, err)
	}

	w.out.Removed++
	w.out.BytesFreed += e.Size
	w.c.metrics.EntriesRemovedTotal(e.Kind.String()).Inc()
	w.c.metrics.BytesFreedTotal().Add(float64(e.Size))
	w.record(Event{Action: ActionDelete, Path: e.Path, Kind: e.Kind, Size: e.Size})
	return false
}

// fail routes a failure through the policy and reports whether the
// target must stop
func (w *walk) fail(e fsops.Entry, err error) bool {
	f := newFailure(e.Path, err)
	w.out.Failures = append(w.out.Failures, f)

	fatal := w.policy.FailOnError
	severity, action := "warning", ActionWarn
	if fatal {
		severity, action = "fatal", ActionFail
	}
	w.c.metrics.FailuresTotal(string(f.Kind), severity).Inc()
	w.record(Event{Action: action, Path: e.Path, Kind: e.Kind, Failure: f.Kind, Err: err})

	if fatal {
		w.out.Completed = false
		w.c.logger.Error(f.Error())
		return true
	}
	w.c.logger.Warn("Failed to delete "+e.Path, "reason", f.Kind, "error", err)
	return false
}

func (w *walk) record(ev Event) {
	if w.c.recorder == nil {
		return
	}
	ev.Time = w.c.clock.Now()
	ev.Target = w.target.Path
	if err := w.c.recorder.Record(ev); err != nil {
		w.c.logger.Error("Failed to record to database", "path", ev.Path, "error", err)
	}
}

// removeEntry removes a single path, retrying once when the policy asks
// for it. A path that is already gone counts as removed.
func (c *Cleaner) removeEntry(path string, policy Policy) error {
	attempts := 1
	if policy.RetryOnError {
		attempts = 2
	}

	// retry wraps the returned error; keep the raw one for classification
	var lastErr error
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			lastErr = c.deleter.Remove(path)
			if lastErr == nil || errors.Is(lastErr, fs.ErrNotExist) {
				lastErr = nil
			}
			return lastErr
		},
		IsFatalError: func(err error) bool {
			return classifyError(err) == KindMismatch
		},
		NotifyFunc: func(err error, attempt int) {
			if attempt < attempts {
				c.metrics.RetriesTotal().Inc()
				c.logger.Debug("Retrying delete", "path", path, "error", err)
			}
		},
		Attempts: attempts,
		Delay:    c.retryDelay,
		Clock:    c.clock,
	})
	if err != nil && lastErr != nil {
		return lastErr
	}
	return err
}

func describe(k fsops.Kind) string {
	switch k {
	case fsops.Directory:
		return "directory"
	case fsops.SymlinkToDir, fsops.SymlinkToFile:
		return "link"
	default:
		return "file"
	}
}

package clean

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"target-sweep/internal/fsops"
)

// ErrKindMismatch marks a path that is not the kind the operation needs
var ErrKindMismatch = errors.New("kind mismatch")

// FailureKind classifies why a removal failed
type FailureKind string

const (
	KindMismatch   FailureKind = "kind_mismatch"
	LockedOrDenied FailureKind = "locked_or_denied"
	IOError        FailureKind = "io_error"
)

func (k FailureKind) reason() string {
	switch k {
	case KindMismatch:
		return "unexpected file type"
	case LockedOrDenied:
		return "file is locked or access is denied"
	default:
		return "I/O error"
	}
}

func classifyError(err error) FailureKind {
	switch {
	case errors.Is(err, ErrKindMismatch),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.EISDIR):
		return KindMismatch
	case errors.Is(err, fs.ErrPermission), fsops.IsLocked(err):
		return LockedOrDenied
	default:
		return IOError
	}
}

// Failure is one path that could not be deleted
type Failure struct {
	Path string
	Kind FailureKind
	Err  error
}

func newFailure(path string, err error) *Failure {
	return &Failure{Path: path, Kind: classifyError(err), Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("cannot delete %s: %s: %v", f.Path, f.Kind.reason(), f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is the result of cleaning one target.
// Completed is false only when the policy aborted on a failure,
// in which case the last entry of Failures is the fatal one.
type Outcome struct {
	Target     string
	Mode       string
	Removed    int
	BytesFreed int64
	Failures   []*Failure
	Completed  bool
}

// Err returns the fatal failure, or nil when the target completed
// (possibly with warnings)
func (o Outcome) Err() error {
	if o.Completed || len(o.Failures) == 0 {
		return nil
	}
	return o.Failures[len(o.Failures)-1]
}

// Warnings returns failures that did not stop the target
func (o Outcome) Warnings() []*Failure {
	if o.Completed || len(o.Failures) == 0 {
		return o.Failures
	}
	return o.Failures[:len(o.Failures)-1]
}

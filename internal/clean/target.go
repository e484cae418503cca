package clean

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/juju/collections/set"
)

// Target is one root to clean. A nil Selector cleans the whole directory,
// root included; otherwise only selected entries below the root go.
type Target struct {
	Path           string
	Selector       Selector
	FollowSymlinks bool
}

// Mode names the target's deletion mode for logs and metrics
func (t Target) Mode() string {
	if t.Selector == nil {
		return "directory"
	}
	return "fileset"
}

// Policy decides what a failed removal does to the rest of the target
type Policy struct {
	FailOnError  bool // abort the target on the first failure
	RetryOnError bool // retry a failed removal once before giving up
}

// DefaultPolicy fails fast without retrying
func DefaultPolicy() Policy {
	return Policy{FailOnError: true}
}

// Selector decides which entries of a fileset target are deleted.
// Paths are relative to the target root, '/'-separated; the root is "".
type Selector interface {
	// IsSelected reports whether the entry at rel should be deleted
	IsSelected(rel string) bool
	// CouldHoldSelected reports whether the directory at rel may contain
	// selected entries; false stops the descent
	CouldHoldSelected(rel string) bool
	String() string
}

// PathSet selects an already resolved list of relative paths
type PathSet struct {
	selected set.Strings
	parents  set.Strings
}

func NewPathSet(paths ...string) *PathSet {
	ps := &PathSet{
		selected: set.NewStrings(),
		parents:  set.NewStrings(),
	}
	for _, p := range paths {
		p = strings.Trim(filepath.ToSlash(filepath.Clean(p)), "/")
		if p == "" || p == "." {
			continue
		}
		ps.selected.Add(p)
		for dir := path.Dir(p); dir != "."; dir = path.Dir(dir) {
			ps.parents.Add(dir)
		}
	}
	return ps
}

func (ps *PathSet) IsSelected(rel string) bool {
	return ps.selected.Contains(rel)
}

func (ps *PathSet) CouldHoldSelected(rel string) bool {
	if rel == "" {
		return !ps.selected.IsEmpty()
	}
	return ps.parents.Contains(rel)
}

func (ps *PathSet) String() string {
	return fmt.Sprintf("paths = %v", ps.selected.SortedValues())
}

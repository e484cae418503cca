// Package fileset selects entries below a fileset root by include and
// exclude globs. Patterns use '/' separators and are matched against
// paths relative to the root; "**" spans any number of directories.
package fileset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var errInvalidPattern = errors.New("invalid pattern")

// DefaultExcludes protects SCM metadata and editor droppings
var DefaultExcludes = []string{
	"**/*~",
	"**/#*#",
	"**/.#*",
	"**/%*%",
	"**/._*",
	"**/CVS/**",
	"**/.cvsignore",
	"**/RCS/**",
	"**/SCCS/**",
	"**/vssver.scc",
	"**/.svn/**",
	"**/.arch-ids/**",
	"**/.bzr/**",
	"**/_MTN/**",
	"**/_darcs/**",
	"**/.hg/**",
	"**/.hgignore",
	"**/.hgsub",
	"**/.hgsubstate",
	"**/.hgtags",
	"**/.git/**",
	"**/.gitignore",
	"**/.gitattributes",
	"**/.gitmodules",
	"**/BitKeeper/**",
	"**/ChangeSet/**",
	"**/.DS_Store",
}

// Matcher implements clean.Selector over include and exclude globs
type Matcher struct {
	includes []string
	excludes []string
}

// New builds a Matcher. Empty includes select everything; defaultExcludes
// appends DefaultExcludes to the excludes.
func New(includes, excludes []string, defaultExcludes bool) (*Matcher, error) {
	m := &Matcher{}

	if len(includes) == 0 {
		includes = []string{"**"}
	}
	for _, p := range includes {
		np, err := normalize(p)
		if err != nil {
			return nil, fmt.Errorf("includes: %w", err)
		}
		m.includes = append(m.includes, np)
	}

	if defaultExcludes {
		excludes = append(append([]string{}, excludes...), DefaultExcludes...)
	}
	for _, p := range excludes {
		np, err := normalize(p)
		if err != nil {
			return nil, fmt.Errorf("excludes: %w", err)
		}
		m.excludes = append(m.excludes, np)
	}

	return m, nil
}

// normalize converts separators and expands a trailing '/' to "/**"
func normalize(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty pattern", errInvalidPattern)
	}
	if strings.HasSuffix(p, "/") {
		p += "**"
	}
	if !doublestar.ValidatePattern(p) {
		return "", fmt.Errorf("%w: %q", errInvalidPattern, p)
	}
	return p, nil
}

// IsSelected reports whether rel is included and not excluded
func (m *Matcher) IsSelected(rel string) bool {
	if rel == "" {
		return false
	}
	return matchAny(m.includes, rel) && !matchAny(m.excludes, rel)
}

// CouldHoldSelected reports whether the directory at rel may contain
// a selected entry. A directory covered by an exclude "dir/**" is
// never entered.
func (m *Matcher) CouldHoldSelected(rel string) bool {
	if rel == "" {
		return len(m.includes) > 0
	}
	for _, p := range m.excludes {
		if strings.HasSuffix(p, "/**") && match(p, rel) {
			return false
		}
	}
	for _, p := range m.includes {
		if matchStart(p, rel) {
			return true
		}
	}
	return false
}

func (m *Matcher) String() string {
	return fmt.Sprintf("includes = %v, excludes = %v", m.includes, m.excludes)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if match(p, rel) {
			return true
		}
	}
	return false
}

// match treats "dir/**" as matching dir itself as well as its contents
func match(pattern, rel string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	if prefix, found := strings.CutSuffix(pattern, "/**"); found {
		ok, _ := doublestar.Match(prefix, rel)
		return ok
	}
	return false
}

// matchStart reports whether some path below rel could match pattern,
// comparing segment by segment until pattern reaches a "**"
func matchStart(pattern, rel string) bool {
	patSegs := strings.Split(pattern, "/")
	relSegs := strings.Split(rel, "/")

	for i, seg := range relSegs {
		if i >= len(patSegs) {
			return false
		}
		if patSegs[i] == "**" {
			return true
		}
		if ok, _ := doublestar.Match(patSegs[i], seg); !ok {
			return false
		}
	}
	return len(patSegs) > len(relSegs)
}

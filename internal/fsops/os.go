package fsops

import (
	"errors"
	"io/fs"
	"os"
	"sort"
)

// OS implements Deleter and Tree using real os package calls
type OS struct{}

func (OS) Remove(path string) error {
	return os.Remove(path)
}

// ReadDirNames lists dir sorted by name. dir may be a link to a directory.
func (OS) ReadDirNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Classify never dereferences path itself. For links the target is
// stat'ed only to tell a directory link from a file link; a dangling
// link is reported as SymlinkToFile with Dangling set.
func (OS) Classify(path string) (Entry, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{Path: path, Kind: Missing}, nil
		}
		return Entry{Path: path}, err
	}

	if isLink(path, fi) {
		e := Entry{Path: path, Kind: SymlinkToFile}
		target, err := os.Stat(path)
		switch {
		case err == nil && target.IsDir():
			e.Kind = SymlinkToDir
		case errors.Is(err, fs.ErrNotExist):
			e.Dangling = true
		}
		return e, nil
	}

	if fi.IsDir() {
		return Entry{Path: path, Kind: Directory}, nil
	}
	return Entry{Path: path, Kind: File, Size: fi.Size()}, nil
}

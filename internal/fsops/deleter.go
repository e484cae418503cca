package fsops

// Deleter abstracts filesystem delete operations
// Enables failure injection in tests to exercise the error policy
type Deleter interface {
	Remove(path string) error
}

// Classifier reports what a path is without following it
type Classifier interface {
	Classify(path string) (Entry, error)
}

// Lister returns the names of a directory's children
type Lister interface {
	ReadDirNames(dir string) ([]string, error)
}

// Tree is the read side of the filesystem as seen by the cleaner
type Tree interface {
	Classifier
	Lister
}

// Kind is the classification of a single path
type Kind int

const (
	Missing Kind = iota
	File
	Directory
	SymlinkToFile
	SymlinkToDir
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case File:
		return "file"
	case Directory:
		return "directory"
	case SymlinkToFile:
		return "symlink_file"
	case SymlinkToDir:
		return "symlink_directory"
	default:
		return "unknown"
	}
}

// IsLink reports whether the path itself is a link or junction
func (k Kind) IsLink() bool {
	return k == SymlinkToFile || k == SymlinkToDir
}

// IsDir reports whether the path can be listed as a directory,
// either directly or through a link
func (k Kind) IsDir() bool {
	return k == Directory || k == SymlinkToDir
}

// Entry is a single filesystem node as observed at visit time
type Entry struct {
	Path     string
	Kind     Kind
	Size     int64 // regular files only, zero otherwise
	Dangling bool  // link whose target does not exist
}

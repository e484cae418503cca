//go:build windows

package fsops

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/windows"
)

// Directory junctions are not reported as ModeSymlink, so reparse
// directories are detected from the raw attributes.
func isLink(path string, fi fs.FileInfo) bool {
	if fi.Mode()&fs.ModeSymlink != 0 {
		return true
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0 &&
		attrs&windows.FILE_ATTRIBUTE_DIRECTORY != 0
}

// IsLocked reports whether err means another process holds the file.
func IsLocked(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION) ||
		errors.Is(err, windows.ERROR_BUSY)
}

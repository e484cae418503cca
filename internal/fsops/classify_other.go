//go:build !windows

package fsops

import (
	"errors"
	"io/fs"
	"syscall"
)

func isLink(_ string, fi fs.FileInfo) bool {
	return fi.Mode()&fs.ModeSymlink != 0
}

// IsLocked reports whether err means another process holds the file.
func IsLocked(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.ETXTBSY)
}

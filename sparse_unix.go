//go:build darwin || dragonfly || freebsd || linux || netbsd || solaris

package sparse

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// osBackend answers sparse queries with lseek(2) SEEK_DATA/SEEK_HOLE. The
// supported filesystems are listed in the lseek man page; a filesystem
// without support fails with EINVAL, which is mapped to ErrUnsupported.
var osBackend backend = unixBackend{}

type unixBackend struct{}

func (unixBackend) seekRegion(file *os.File, offset int64, kind ItemKind) (int64, error) {
	whence := seekData
	if kind == Hole {
		whence = seekHole
	}

	off, err := unix.Seek(int(file.Fd()), offset, whence)
	if err != nil {
		var errno syscall.Errno
		if errors.As(err, &errno) {
			switch {
			case errno == unix.ENXIO:
				// No region of the requested kind at or after
				// offset. Expected termination, not a fault.
				return 0, io.EOF
			case seekWhenceUnsupported(errno):
				return 0, fmt.Errorf("seeking to %s: %w", kind, ErrUnsupported)
			}
		}
		return 0, fmt.Errorf("error seeking to %s: %w", kind, err)
	}
	return off, nil
}

func (unixBackend) size(file *os.File) (int64, error) {
	fi, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// seekWhenceUnsupported reports whether errno means the kernel or the
// filesystem rejected the SEEK_DATA/SEEK_HOLE whence value itself.
func seekWhenceUnsupported(errno syscall.Errno) bool {
	return errno == unix.EINVAL ||
		errno == unix.ENOSYS ||
		errno == unix.ENOTSUP ||
		errno == unix.EOPNOTSUPP
}
